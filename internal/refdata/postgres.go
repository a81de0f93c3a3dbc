package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/money"
)

// Rule kinds stored in pricing_rules.
const (
	ruleExtraPersonCharge = "extra_person_charge"
	ruleMealPlan          = "meal_plan"
	ruleTransferType      = "transfer_type"
	ruleActivity          = "activity"
	ruleFestiveSupplement = "festive_supplement"
	ruleTaxConfig         = "tax_config"
	ruleDiscount          = "discount"
	ruleMarkupConfig      = "markup_config"
)

// DB is the subset of pgxpool.Pool the loader and writer need.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresSource loads the record set from the reference-data schema.
type PostgresSource struct {
	DB DB
}

func (p PostgresSource) Name() string { return "postgres" }

func (p PostgresSource) Load(ctx context.Context) (Records, error) {
	var r Records
	var err error
	if r.Resorts, err = queryAll(ctx, p.DB, `SELECT id, name, currency, requires_transfer FROM resorts ORDER BY id`, scanResort); err != nil {
		return Records{}, fmt.Errorf("refdata: load resorts: %w", err)
	}
	if r.RoomTypes, err = queryAll(ctx, p.DB, `SELECT id, resort_id, name, base_occupancy, max_adults, max_children, max_occupancy FROM room_types ORDER BY id`, scanRoomType); err != nil {
		return Records{}, fmt.Errorf("refdata: load room types: %w", err)
	}
	if r.AgeBands, err = queryAll(ctx, p.DB, `SELECT id, resort_id, name, min_age, max_age FROM age_bands ORDER BY resort_id, min_age`, scanAgeBand); err != nil {
		return Records{}, fmt.Errorf("refdata: load age bands: %w", err)
	}
	if r.Seasons, err = queryAll(ctx, p.DB, `SELECT id, resort_id, name, start_date, end_date FROM seasons ORDER BY resort_id, start_date`, scanSeason); err != nil {
		return Records{}, fmt.Errorf("refdata: load seasons: %w", err)
	}
	if r.Rates, err = queryAll(ctx, p.DB, `SELECT id, resort_id, room_type_id, season_id, valid_from, valid_to, amount::text, currency FROM room_rates ORDER BY id`, scanRate); err != nil {
		return Records{}, fmt.Errorf("refdata: load rates: %w", err)
	}

	rules := []struct {
		kind string
		dst  func(json.RawMessage) error
	}{
		{ruleExtraPersonCharge, appendJSON(&r.ExtraPersonCharges)},
		{ruleMealPlan, appendJSON(&r.MealPlans)},
		{ruleTransferType, appendJSON(&r.TransferTypes)},
		{ruleActivity, appendJSON(&r.Activities)},
		{ruleFestiveSupplement, appendJSON(&r.FestiveSupplements)},
		{ruleTaxConfig, appendJSON(&r.TaxConfigs)},
		{ruleDiscount, appendJSON(&r.Discounts)},
		{ruleMarkupConfig, appendJSON(&r.MarkupConfigs)},
	}
	for _, rule := range rules {
		payloads, err := queryAll(ctx, p.DB, `SELECT payload FROM pricing_rules WHERE kind = $1 ORDER BY id`, scanPayload, rule.kind)
		if err != nil {
			return Records{}, fmt.Errorf("refdata: load %s rules: %w", rule.kind, err)
		}
		for _, payload := range payloads {
			if err := rule.dst(payload); err != nil {
				return Records{}, fmt.Errorf("refdata: decode %s rule: %w", rule.kind, err)
			}
		}
	}
	return r, nil
}

// Store replaces the stored reference data with records in one transaction.
func (p PostgresSource) Store(ctx context.Context, r Records) error {
	tx, err := p.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM pricing_rules`)
	batch.Queue(`DELETE FROM room_rates`)
	batch.Queue(`DELETE FROM seasons`)
	batch.Queue(`DELETE FROM age_bands`)
	batch.Queue(`DELETE FROM room_types`)
	batch.Queue(`DELETE FROM resorts`)
	for _, resort := range r.Resorts {
		batch.Queue(`INSERT INTO resorts (id, name, currency, requires_transfer) VALUES ($1, $2, $3, $4)`,
			resort.ID, resort.Name, resort.Currency, resort.RequiresTransfer)
	}
	for _, room := range r.RoomTypes {
		batch.Queue(`INSERT INTO room_types (id, resort_id, name, base_occupancy, max_adults, max_children, max_occupancy) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			room.ID, room.ResortID, room.Name, room.BaseOccupancy, room.MaxAdults, room.MaxChildren, room.MaxOccupancy)
	}
	for _, band := range r.AgeBands {
		batch.Queue(`INSERT INTO age_bands (id, resort_id, name, min_age, max_age) VALUES ($1, $2, $3, $4, $5)`,
			band.ID, band.ResortID, band.Name, band.MinAge, band.MaxAge)
	}
	for _, season := range r.Seasons {
		batch.Queue(`INSERT INTO seasons (id, resort_id, name, start_date, end_date) VALUES ($1, $2, $3, $4, $5)`,
			season.ID, season.ResortID, season.Name, toPGDate(&season.Start), toPGDate(&season.End))
	}
	for _, rate := range r.Rates {
		batch.Queue(`INSERT INTO room_rates (id, resort_id, room_type_id, season_id, valid_from, valid_to, amount, currency) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8)`,
			rate.ID, rate.ResortID, rate.RoomTypeID, rate.SeasonID, toPGDate(rate.ValidFrom), toPGDate(rate.ValidTo), rate.Price.Amount.String(), rate.Price.Currency)
	}
	if err := queueRules(batch, ruleExtraPersonCharge, r.ExtraPersonCharges, func(c ExtraPersonCharge) (string, ResortID) { return string(c.ID), c.ResortID }); err != nil {
		return err
	}
	if err := queueRules(batch, ruleMealPlan, r.MealPlans, func(m MealPlan) (string, ResortID) { return string(m.ID), m.ResortID }); err != nil {
		return err
	}
	if err := queueRules(batch, ruleTransferType, r.TransferTypes, func(t TransferType) (string, ResortID) { return string(t.ID), t.ResortID }); err != nil {
		return err
	}
	if err := queueRules(batch, ruleActivity, r.Activities, func(a Activity) (string, ResortID) { return string(a.ID), a.ResortID }); err != nil {
		return err
	}
	if err := queueRules(batch, ruleFestiveSupplement, r.FestiveSupplements, func(f FestiveSupplement) (string, ResortID) { return string(f.ID), f.ResortID }); err != nil {
		return err
	}
	if err := queueRules(batch, ruleTaxConfig, r.TaxConfigs, func(t TaxConfig) (string, ResortID) { return string(t.ID), t.ResortID }); err != nil {
		return err
	}
	if err := queueRules(batch, ruleDiscount, r.Discounts, func(d Discount) (string, ResortID) { return string(d.ID), d.ResortID }); err != nil {
		return err
	}
	if err := queueRules(batch, ruleMarkupConfig, r.MarkupConfigs, func(m MarkupConfig) (string, ResortID) { return string(m.ID), m.ResortID }); err != nil {
		return err
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("refdata: store records: %w", err)
	}
	return tx.Commit(ctx)
}

func queueRules[T any](batch *pgx.Batch, kind string, items []T, key func(T) (string, ResortID)) error {
	for _, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("refdata: encode %s: %w", kind, err)
		}
		id, resort := key(item)
		var resortID *string
		if resort != "" {
			s := string(resort)
			resortID = &s
		}
		batch.Queue(`INSERT INTO pricing_rules (kind, id, resort_id, payload) VALUES ($1, $2, $3, $4)`, kind, id, resortID, payload)
	}
	return nil
}

func queryAll[T any](ctx context.Context, db DB, sql string, scan func(pgx.Row) (T, error), args ...any) ([]T, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func appendJSON[T any](dst *[]T) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		*dst = append(*dst, item)
		return nil
	}
}

func scanResort(row pgx.Row) (Resort, error) {
	var r Resort
	err := row.Scan(&r.ID, &r.Name, &r.Currency, &r.RequiresTransfer)
	r.Currency = money.NormalizeCurrency(r.Currency)
	return r, err
}

func scanRoomType(row pgx.Row) (RoomType, error) {
	var r RoomType
	err := row.Scan(&r.ID, &r.ResortID, &r.Name, &r.BaseOccupancy, &r.MaxAdults, &r.MaxChildren, &r.MaxOccupancy)
	return r, err
}

func scanAgeBand(row pgx.Row) (AgeBand, error) {
	var b AgeBand
	err := row.Scan(&b.ID, &b.ResortID, &b.Name, &b.MinAge, &b.MaxAge)
	return b, err
}

func scanSeason(row pgx.Row) (Season, error) {
	var (
		s          Season
		start, end pgtype.Date
	)
	if err := row.Scan(&s.ID, &s.ResortID, &s.Name, &start, &end); err != nil {
		return Season{}, err
	}
	s.Start = civil.DateOf(start.Time)
	s.End = civil.DateOf(end.Time)
	return s, nil
}

func scanRate(row pgx.Row) (Rate, error) {
	var (
		r        Rate
		from, to pgtype.Date
		amount   string
		currency string
	)
	if err := row.Scan(&r.ID, &r.ResortID, &r.RoomTypeID, &r.SeasonID, &from, &to, &amount, &currency); err != nil {
		return Rate{}, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return Rate{}, fmt.Errorf("rate %s amount: %w", r.ID, err)
	}
	r.Price = money.New(value, currency)
	r.ValidFrom = fromPGDate(from)
	r.ValidTo = fromPGDate(to)
	return r, nil
}

func scanPayload(row pgx.Row) (json.RawMessage, error) {
	var raw []byte
	err := row.Scan(&raw)
	return json.RawMessage(raw), err
}

func toPGDate(d *civil.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func fromPGDate(d pgtype.Date) *civil.Date {
	if !d.Valid {
		return nil
	}
	date := civil.DateOf(d.Time)
	return &date
}

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/level-fi/llp-tracker/pkg/db/clickhouse"
	"github.com/level-fi/llp-tracker/pkg/tracker"
)

// WindowRow is one materialized performance window. Histories are stored as a
// JSON blob since they are only ever read back whole.
type WindowRow struct {
	ID             string    `ch:"id"`
	Wallet         string    `ch:"wallet"`
	Tranche        string    `ch:"tranche"`
	FromTs         int64     `ch:"from_ts"`
	ToTs           int64     `ch:"to_ts"`
	Amount         float64   `ch:"amount"`
	AmountChange   float64   `ch:"amount_change"`
	Price          float64   `ch:"price"`
	Value          float64   `ch:"value"`
	TotalChange    float64   `ch:"total_change"`
	RelativeChange float64   `ch:"relative_change"`
	NominalApr     float64   `ch:"nominal_apr"`
	NetApr         float64   `ch:"net_apr"`
	Fee            float64   `ch:"fee"`
	Pnl            float64   `ch:"pnl"`
	PriceMovement  float64   `ch:"price_movement"`
	ValueChange    float64   `ch:"value_change"`
	Histories      string    `ch:"histories"`
	UpdatedAt      time.Time `ch:"updated_at"`
}

func (db *DB) initWindows(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String,
			wallet String,
			tranche String,
			from_ts Int64,
			to_ts Int64,
			amount Float64,
			amount_change Float64,
			price Float64,
			value Float64,
			total_change Float64,
			relative_change Float64,
			nominal_apr Float64,
			net_apr Float64,
			fee Float64,
			pnl Float64,
			price_movement Float64,
			value_change Float64,
			histories String,
			updated_at DateTime64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (tranche, wallet, from_ts, to_ts)
	`, db.Name, WindowsTableName)
	return db.Exec(ctx, query)
}

// RowFromWindow flattens a rolled window into its storage shape.
func RowFromWindow(w tracker.Window) (WindowRow, error) {
	histories, err := json.Marshal(w.Histories)
	if err != nil {
		return WindowRow{}, fmt.Errorf("marshal histories of window %d-%d: %w", w.From, w.To, err)
	}
	return WindowRow{
		ID:             tracker.WindowID(w),
		Wallet:         w.Wallet,
		Tranche:        w.Tranche,
		FromTs:         w.From,
		ToTs:           w.To,
		Amount:         w.Amount,
		AmountChange:   w.AmountChange,
		Price:          w.Price,
		Value:          w.Value,
		TotalChange:    w.TotalChange,
		RelativeChange: w.RelativeChange,
		NominalApr:     w.NominalApr,
		NetApr:         w.NetApr,
		Fee:            w.ValueMovement.Fee,
		Pnl:            w.ValueMovement.Pnl,
		PriceMovement:  w.ValueMovement.Price,
		ValueChange:    w.ValueMovement.ValueChange,
		Histories:      string(histories),
		UpdatedAt:      time.Now().UTC(),
	}, nil
}

// Window rebuilds the domain shape from a stored row.
func (r WindowRow) Window() (tracker.Window, error) {
	w := tracker.Window{
		Wallet:         r.Wallet,
		Tranche:        r.Tranche,
		From:           r.FromTs,
		To:             r.ToTs,
		Amount:         r.Amount,
		AmountChange:   r.AmountChange,
		Price:          r.Price,
		Value:          r.Value,
		TotalChange:    r.TotalChange,
		RelativeChange: r.RelativeChange,
		NominalApr:     r.NominalApr,
		NetApr:         r.NetApr,
		ValueMovement: tracker.ValueMovement{
			Fee:         r.Fee,
			Pnl:         r.Pnl,
			Price:       r.PriceMovement,
			ValueChange: r.ValueChange,
		},
	}
	if r.Histories != "" {
		if err := json.Unmarshal([]byte(r.Histories), &w.Histories); err != nil {
			return tracker.Window{}, fmt.Errorf("unmarshal histories of window %s: %w", r.ID, err)
		}
	}
	return w, nil
}

// UpsertWindows writes rolled windows. Rewrites of the same window period
// supersede the previous row on merge.
func (db *DB) UpsertWindows(ctx context.Context, windows []tracker.Window) ([]string, error) {
	if len(windows) == 0 {
		return nil, nil
	}

	batch, err := db.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO "%s"."%s"`, db.Name, WindowsTableName))
	if err != nil {
		return nil, fmt.Errorf("prepare window batch: %w", err)
	}

	ids := make([]string, 0, len(windows))
	for _, w := range windows {
		row, err := RowFromWindow(w)
		if err != nil {
			return nil, err
		}
		if err := batch.AppendStruct(&row); err != nil {
			return nil, fmt.Errorf("append window %s: %w", row.ID, err)
		}
		ids = append(ids, row.ID)
	}
	if err := batch.Send(); err != nil {
		return nil, fmt.Errorf("send window batch: %w", err)
	}

	return ids, nil
}

// RetainWindows drops every window of the wallet whose id is not in keepIDs.
// Called after a rebuild so windows whose periods no longer exist disappear.
// Uses lightweight DELETE so reads are not blocked.
func (db *DB) RetainWindows(ctx context.Context, tranche, wallet string, keepIDs []string) error {
	var query string
	var args []interface{}
	if len(keepIDs) == 0 {
		query = fmt.Sprintf(`DELETE FROM "%s"."%s" WHERE tranche = ? AND wallet = ?`, db.Name, WindowsTableName)
		args = []interface{}{tranche, wallet}
	} else {
		query = fmt.Sprintf(`DELETE FROM "%s"."%s" WHERE tranche = ? AND wallet = ? AND id NOT IN (?)`, db.Name, WindowsTableName)
		args = []interface{}{tranche, wallet, keepIDs}
	}

	if err := db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("retain windows of %s/%s: %w", tranche, wallet, err)
	}
	return nil
}

// WindowQuery filters and paginates stored windows. From and To bound the
// window close timestamp; zero means unbounded.
type WindowQuery struct {
	Wallet  string
	Tranche string
	From    int64
	To      int64
	Size    int
	Page    int
	SortAsc bool
}

// QueryWindows returns one page of a wallet's windows plus the unpaginated
// total, newest first unless SortAsc is set.
func (db *DB) QueryWindows(ctx context.Context, q WindowQuery) ([]tracker.Window, uint64, error) {
	where := `WHERE tranche = ? AND wallet = ?`
	args := []interface{}{q.Tranche, q.Wallet}
	if q.From > 0 {
		where += ` AND to_ts >= ?`
		args = append(args, q.From)
	}
	if q.To > 0 {
		where += ` AND to_ts <= ?`
		args = append(args, q.To)
	}

	var total uint64
	countQuery := fmt.Sprintf(`SELECT count() FROM "%s"."%s" FINAL %s`, db.Name, WindowsTableName, where)
	if err := db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count windows of %s/%s: %w", q.Tranche, q.Wallet, err)
	}

	direction := "DESC"
	if q.SortAsc {
		direction = "ASC"
	}
	size := q.Size
	if size <= 0 {
		size = 10
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}

	query := fmt.Sprintf(`
		SELECT id, wallet, tranche, from_ts, to_ts, amount, amount_change, price, value,
			total_change, relative_change, nominal_apr, net_apr,
			fee, pnl, price_movement, value_change, histories, updated_at
		FROM "%s"."%s" FINAL
		%s
		ORDER BY to_ts %s
		LIMIT ? OFFSET ?
	`, db.Name, WindowsTableName, where, direction)
	args = append(args, size, size*(page-1))

	var rows []WindowRow
	if err := db.Select(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("select windows of %s/%s: %w", q.Tranche, q.Wallet, err)
	}

	windows := make([]tracker.Window, 0, len(rows))
	for _, row := range rows {
		w, err := row.Window()
		if err != nil {
			return nil, 0, err
		}
		windows = append(windows, w)
	}
	return windows, total, nil
}

// LatestWindow returns the wallet's most recently closed window.
func (db *DB) LatestWindow(ctx context.Context, tranche, wallet string) (tracker.Window, bool, error) {
	query := fmt.Sprintf(`
		SELECT id, wallet, tranche, from_ts, to_ts, amount, amount_change, price, value,
			total_change, relative_change, nominal_apr, net_apr,
			fee, pnl, price_movement, value_change, histories, updated_at
		FROM "%s"."%s" FINAL
		WHERE tranche = ? AND wallet = ?
		ORDER BY to_ts DESC
		LIMIT 1
	`, db.Name, WindowsTableName)

	var row WindowRow
	if err := db.QueryRow(ctx, query, tranche, wallet).ScanStruct(&row); err != nil {
		if clickhouse.IsNoRows(err) {
			return tracker.Window{}, false, nil
		}
		return tracker.Window{}, false, fmt.Errorf("latest window of %s/%s: %w", tranche, wallet, err)
	}
	w, err := row.Window()
	if err != nil {
		return tracker.Window{}, false, err
	}
	return w, true, nil
}

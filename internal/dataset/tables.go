package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// Default file names inside the data directory.
const (
	DefaultTransactionsFile = "transacoes_cupons.csv"
	DefaultCapturesFile     = "lojas_valores.csv"
	DefaultPedestriansFile  = "pedestres_paulista.csv"
	DefaultPlayersFile      = "base_players.csv"
)

// Sources are the paths of the four input files.
type Sources struct {
	Transactions string
	Captures     string
	Pedestrians  string
	Players      string
}

// DefaultSources returns the default file layout under dir.
func DefaultSources(dir string) Sources {
	return Sources{
		Transactions: filepath.Join(dir, DefaultTransactionsFile),
		Captures:     filepath.Join(dir, DefaultCapturesFile),
		Pedestrians:  filepath.Join(dir, DefaultPedestriansFile),
		Players:      filepath.Join(dir, DefaultPlayersFile),
	}
}

// Options tune LoadAll.
type Options struct {
	Logger     *slog.Logger
	SniffLines int
	// ReferenceDate is the date player ages are derived at. Zero means today.
	ReferenceDate time.Time
}

// Tables is the immutable handle over the four normalized tables. It is built
// once and shared read-only by every query.
type Tables struct {
	Transactions *Table[Transaction]
	Captures     *Table[ValueCapture]
	Pedestrians  *Table[PedestrianFlow]
	Players      *Table[Player]

	phoneIDs   map[string]uint32
	playerAges map[string][]AgeBracket
	loadedAt   time.Time
}

// NewTables indexes the given tables. Nil tables are replaced by empty ones.
func NewTables(tx *Table[Transaction], vc *Table[ValueCapture], pf *Table[PedestrianFlow], pl *Table[Player]) *Tables {
	if tx == nil {
		tx = NewTable[Transaction](TableTransactions, nil, 0)
	}
	if vc == nil {
		vc = NewTable[ValueCapture](TableCaptures, nil, 0)
	}
	if pf == nil {
		pf = NewTable[PedestrianFlow](TablePedestrians, nil, 0)
	}
	if pl == nil {
		pl = NewTable[Player](TablePlayers, nil, 0)
	}

	t := &Tables{
		Transactions: tx,
		Captures:     vc,
		Pedestrians:  pf,
		Players:      pl,
		phoneIDs:     make(map[string]uint32),
		playerAges:   make(map[string][]AgeBracket),
		loadedAt:     time.Now().UTC(),
	}

	for row := range tx.All() {
		t.assign(row.Phone)
	}
	for row := range vc.All() {
		t.assign(row.Phone)
	}
	for row := range pf.All() {
		t.assign(row.Phone)
	}
	for row := range pl.All() {
		t.assign(row.Phone)
		if row.Phone != "" {
			t.playerAges[row.Phone] = append(t.playerAges[row.Phone], row.Bracket)
		}
	}

	return t
}

func (t *Tables) assign(key string) {
	if key == "" {
		return
	}
	if _, ok := t.phoneIDs[key]; !ok {
		t.phoneIDs[key] = uint32(len(t.phoneIDs))
	}
}

// PhoneID returns the dense id of a phone key, for bitmap counting.
func (t *Tables) PhoneID(key string) (uint32, bool) {
	id, ok := t.phoneIDs[key]
	return id, ok
}

// PlayerBrackets returns the age bracket of every player row matching key.
// Entries are empty when that player row has no usable age.
func (t *Tables) PlayerBrackets(key string) []AgeBracket {
	return t.playerAges[key]
}

// LoadedAt returns when the handle was built.
func (t *Tables) LoadedAt() time.Time {
	return t.loadedAt
}

// Diagnostics returns the per-table diagnostics in a fixed order.
func (t *Tables) Diagnostics() []Diagnostics {
	return []Diagnostics{
		t.Transactions.Diagnostics(),
		t.Captures.Diagnostics(),
		t.Pedestrians.Diagnostics(),
		t.Players.Diagnostics(),
	}
}

// DateRange returns the earliest and latest transaction dates.
func (t *Tables) DateRange() (first, last *time.Time) {
	var dates []time.Time
	for row := range t.Transactions.All() {
		if row.Date != nil {
			dates = append(dates, *row.Date)
		}
	}
	if len(dates) == 0 {
		return nil, nil
	}
	lo := slices.MinFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	hi := slices.MaxFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return &lo, &hi
}

// LoadAll reads and normalizes the four files concurrently. Any failure cancels
// the remaining loads and is returned.
func LoadAll(ctx context.Context, src Sources, opts Options) (*Tables, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ref := opts.ReferenceDate
	if ref.IsZero() {
		now := time.Now().UTC()
		ref = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	loader := NewLoader(logger, opts.SniffLines)
	start := time.Now()

	var (
		tx *Table[Transaction]
		vc *Table[ValueCapture]
		pf *Table[PedestrianFlow]
		pl *Table[Player]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := loader.LoadFile(gctx, src.Transactions)
		if err != nil {
			return err
		}
		tx = BuildTransactions(raw)
		return nil
	})
	g.Go(func() error {
		raw, err := loader.LoadFile(gctx, src.Captures)
		if err != nil {
			return err
		}
		vc = BuildCaptures(raw)
		return nil
	})
	g.Go(func() error {
		raw, err := loader.LoadFile(gctx, src.Pedestrians)
		if err != nil {
			return err
		}
		pf = BuildPedestrians(raw)
		return nil
	})
	g.Go(func() error {
		raw, err := loader.LoadFile(gctx, src.Players)
		if err != nil {
			return err
		}
		pl = BuildPlayers(raw, ref)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}

	tables := NewTables(tx, vc, pf, pl)

	for _, d := range tables.Diagnostics() {
		attrs := []any{
			slog.String("table", d.Table),
			slog.Int("rows_kept", d.RowsKept),
			slog.Int("rows_skipped", d.RowsSkipped),
			slog.Int("coerced_rows", d.CoercedRows),
			slog.Int("invalid_phones", d.InvalidPhones),
		}
		if len(d.MissingCols) > 0 {
			attrs = append(attrs, slog.Any("missing_columns", d.MissingCols))
		}
		logger.InfoContext(ctx, "dataset normalized", attrs...)
	}
	logger.InfoContext(ctx, "all datasets loaded",
		slog.Int("distinct_phones", len(tables.phoneIDs)),
		slog.Duration("duration", time.Since(start)))

	return tables, nil
}

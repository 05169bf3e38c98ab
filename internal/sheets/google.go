package sheets

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// DefaultSnapshotTTL is how long a fetched table is served from memory
// before the next Table call refetches it.
const DefaultSnapshotTTL = 10 * time.Minute

type cachedTable struct {
	table     *Table
	fetchedAt time.Time
}

// GoogleSource reads tables from a Google Spreadsheet located by name in
// Drive. Fetched tables are cached for a short TTL so a burst of derivation
// passes does not hammer the Sheets API.
type GoogleSource struct {
	sheetsSvc       *sheetsapi.Service
	driveSvc        *drive.Service
	spreadsheetName string
	mapping         Mapping
	ttl             time.Duration
	log             *zap.Logger

	mu            sync.Mutex
	spreadsheetID string
	cache         map[string]cachedTable
}

// NewGoogleSource constructs a source over an authenticated HTTP client. The
// spreadsheet is resolved lazily on first access.
func NewGoogleSource(ctx context.Context, client *http.Client, spreadsheetName string, mapping Mapping, log *zap.Logger) (*GoogleSource, error) {
	sheetsSvc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &GoogleSource{
		sheetsSvc:       sheetsSvc,
		driveSvc:        driveSvc,
		spreadsheetName: spreadsheetName,
		mapping:         mapping,
		ttl:             DefaultSnapshotTTL,
		log:             log,
		cache:           make(map[string]cachedTable),
	}, nil
}

// SetSnapshotTTL overrides the table cache TTL. Zero disables caching.
func (g *GoogleSource) SetSnapshotTTL(ttl time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ttl = ttl
}

// Table implements Source.
func (g *GoogleSource) Table(ctx context.Context, name string) (*Table, error) {
	g.mu.Lock()
	if cached, ok := g.cache[name]; ok && g.ttl > 0 && time.Since(cached.fetchedAt) < g.ttl {
		g.mu.Unlock()
		return cached.table, nil
	}
	g.mu.Unlock()

	t, err := g.fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.cache[name] = cachedTable{table: t, fetchedAt: time.Now()}
	g.mu.Unlock()
	return t, nil
}

// Reload implements Source: it evicts the cached copy and fetches fresh data
// immediately so the next read is already warm.
func (g *GoogleSource) Reload(ctx context.Context, name string) error {
	g.mu.Lock()
	delete(g.cache, name)
	g.mu.Unlock()

	t, err := g.fetch(ctx, name)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.cache[name] = cachedTable{table: t, fetchedAt: time.Now()}
	g.mu.Unlock()
	return nil
}

func (g *GoogleSource) fetch(ctx context.Context, name string) (*Table, error) {
	id, err := g.resolveSpreadsheetID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := g.sheetsSvc.Spreadsheets.Values.Get(id, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTableNotFound, name, err)
	}

	raw := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, fmt.Sprint(v))
		}
		raw = append(raw, cells)
	}

	t, err := NewTable(name, raw, g.mapping.Marker(name))
	if err != nil {
		return nil, err
	}
	g.log.Debug("table_fetched",
		zap.String("table", name),
		zap.Int("rows", len(t.Rows)),
	)
	return t, nil
}

// resolveSpreadsheetID finds the spreadsheet by name in Drive, caching the ID
// for the lifetime of the source.
func (g *GoogleSource) resolveSpreadsheetID(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.spreadsheetID != "" {
		id := g.spreadsheetID
		g.mu.Unlock()
		return id, nil
	}
	g.mu.Unlock()

	query := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false", g.spreadsheetName)
	list, err := g.driveSvc.Files.List().Q(query).Fields("files(id, name)").PageSize(2).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("locate spreadsheet %q: %w", g.spreadsheetName, err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("spreadsheet %q not found in drive", g.spreadsheetName)
	}
	if len(list.Files) > 1 {
		g.log.Warn("multiple_spreadsheets_match_name",
			zap.String("name", g.spreadsheetName),
		)
	}

	g.mu.Lock()
	g.spreadsheetID = list.Files[0].Id
	id := g.spreadsheetID
	g.mu.Unlock()
	return id, nil
}

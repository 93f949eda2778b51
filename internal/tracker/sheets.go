package tracker

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/instagram-agent/internal/models"
	"github.com/instagram-agent/pkg/logger"
)

// SheetColumns defines the column headers for the performance sheet
var SheetColumns = []string{
	"Record ID",
	"Business ID",
	"Business",
	"Platform Post ID",
	"Content Type",
	"Posted At",
	"Likes",
	"Comments",
	"Reach",
	"Impressions",
	"Mirrored At",
}

// MirroredRecord is one performance row as read back from the sheet
type MirroredRecord struct {
	RecordID       uint
	BusinessID     uint
	Business       string
	PlatformPostID string
	ContentType    string
	PostedAt       time.Time
	Likes          int64
	Comments       int64
	Reach          int64
	Impressions    int64
	MirroredAt     time.Time
}

// SheetsTracker mirrors performance records to a Google Sheet
type SheetsTracker struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *logger.Logger
}

// Config holds Google Sheets tracker configuration
type Config struct {
	Enabled            bool   `mapstructure:"enabled"`
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	SheetName          string `mapstructure:"sheet_name"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
}

// NewSheetsTracker creates a new Google Sheets tracker. Returns (nil, nil)
// when the tracker is disabled so callers can wire it conditionally.
func NewSheetsTracker(cfg Config, log *logger.Logger) (*SheetsTracker, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	ctx := context.Background()

	var srv *sheets.Service
	var err error

	// Try service account JSON first (for env var injection)
	if cfg.ServiceAccountJSON != "" {
		srv, err = sheets.NewService(ctx, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	} else if cfg.CredentialsFile != "" {
		srv, err = sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	} else {
		return nil, fmt.Errorf("no Google credentials provided: set credentials_file or service_account_json")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Performance"
	}

	tracker := &SheetsTracker{
		service:       srv,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		log:           log.WithComponent("sheets-tracker"),
	}

	return tracker, nil
}

// InitializeSheet creates the sheet and headers if they don't exist
func (t *SheetsTracker) InitializeSheet(ctx context.Context) error {
	if err := t.ensureSheetExists(ctx); err != nil {
		return err
	}

	// Check if headers exist
	readRange := fmt.Sprintf("%s!A1:K1", t.sheetName)
	resp, err := t.service.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(resp.Values) == 0 {
		t.log.Info().Msg("Initializing sheet with headers")
		return t.writeHeaders(ctx)
	}

	t.log.Debug().Msg("Sheet already has headers")
	return nil
}

// ensureSheetExists creates the sheet if it doesn't exist
func (t *SheetsTracker) ensureSheetExists(ctx context.Context) error {
	spreadsheet, err := t.service.Spreadsheets.Get(t.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == t.sheetName {
			t.log.Debug().Str("sheet", t.sheetName).Msg("Sheet already exists")
			return nil
		}
	}

	t.log.Info().Str("sheet", t.sheetName).Msg("Creating new sheet")
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: t.sheetName,
					},
				},
			},
		},
	}

	_, err = t.service.Spreadsheets.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	return nil
}

// writeHeaders writes column headers to the first row
func (t *SheetsTracker) writeHeaders(ctx context.Context) error {
	var headerRow []interface{}
	for _, col := range SheetColumns {
		headerRow = append(headerRow, col)
	}

	writeRange := fmt.Sprintf("%s!A1", t.sheetName)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{headerRow},
	}

	_, err := t.service.Spreadsheets.Values.Update(t.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	t.log.Info().Msg("Sheet headers initialized")
	return nil
}

// Append mirrors one performance record to the sheet
func (t *SheetsTracker) Append(ctx context.Context, record *models.PerformanceRecord, businessName string) error {
	row := []interface{}{
		record.ID,
		record.BusinessID,
		businessName,
		record.PlatformPostID,
		string(record.ContentType),
		record.PostedAt.Format(time.RFC3339),
		record.Likes,
		record.Comments,
		record.Reach,
		record.Impressions,
		time.Now().Format(time.RFC3339),
	}

	appendRange := fmt.Sprintf("%s!A:K", t.sheetName)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{row},
	}

	_, err := t.service.Spreadsheets.Values.Append(t.spreadsheetID, appendRange, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}

	t.log.Info().
		Uint("record_id", record.ID).
		Str("post_id", record.PlatformPostID).
		Str("business", businessName).
		Msg("Performance record mirrored to sheet")

	return nil
}

// Backfill mirrors records whose platform post IDs are not in the sheet yet.
// Returns how many rows were appended.
func (t *SheetsTracker) Backfill(ctx context.Context, records []*models.PerformanceRecord, names map[uint]string) (int, error) {
	if err := t.InitializeSheet(ctx); err != nil {
		return 0, err
	}

	existing, err := t.mirroredPostIDs(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().Format(time.RFC3339)
	var newRows [][]interface{}
	for _, record := range records {
		if _, ok := existing[record.PlatformPostID]; ok {
			continue
		}
		newRows = append(newRows, []interface{}{
			record.ID,
			record.BusinessID,
			names[record.BusinessID],
			record.PlatformPostID,
			string(record.ContentType),
			record.PostedAt.Format(time.RFC3339),
			record.Likes,
			record.Comments,
			record.Reach,
			record.Impressions,
			now,
		})
	}

	if len(newRows) == 0 {
		t.log.Info().Msg("No new performance records to mirror")
		return 0, nil
	}

	// Batch append all missing rows in a single API call
	appendRange := fmt.Sprintf("%s!A:K", t.sheetName)
	valueRange := &sheets.ValueRange{
		Values: newRows,
	}

	_, err = t.service.Spreadsheets.Values.Append(t.spreadsheetID, appendRange, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to batch append records: %w", err)
	}

	t.log.Info().Int("count", len(newRows)).Msg("Batch appended performance records")
	return len(newRows), nil
}

// mirroredPostIDs returns the platform post IDs already present in the sheet
func (t *SheetsTracker) mirroredPostIDs(ctx context.Context) (map[string]struct{}, error) {
	readRange := fmt.Sprintf("%s!D:D", t.sheetName)
	resp, err := t.service.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read post IDs: %w", err)
	}

	ids := make(map[string]struct{})
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue // Skip header
		}
		id := fmt.Sprintf("%v", row[0])
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// ListMirrored retrieves all mirrored performance rows from the sheet
func (t *SheetsTracker) ListMirrored(ctx context.Context) ([]*MirroredRecord, error) {
	readRange := fmt.Sprintf("%s!A2:K", t.sheetName) // Skip header
	resp, err := t.service.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	var records []*MirroredRecord
	for _, row := range resp.Values {
		record := parseRow(row)
		if record != nil {
			records = append(records, record)
		}
	}

	return records, nil
}

// parseRow parses a sheet row into a MirroredRecord
func parseRow(row []interface{}) *MirroredRecord {
	if len(row) < 6 {
		return nil
	}

	getString := func(i int) string {
		if i < len(row) {
			return fmt.Sprintf("%v", row[i])
		}
		return ""
	}

	getUint := func(i int) uint {
		if i < len(row) {
			var val uint
			fmt.Sscanf(fmt.Sprintf("%v", row[i]), "%d", &val)
			return val
		}
		return 0
	}

	getInt64 := func(i int) int64 {
		if i < len(row) {
			var val int64
			fmt.Sscanf(fmt.Sprintf("%v", row[i]), "%d", &val)
			return val
		}
		return 0
	}

	getTime := func(i int) time.Time {
		if i < len(row) {
			t, _ := time.Parse(time.RFC3339, fmt.Sprintf("%v", row[i]))
			return t
		}
		return time.Time{}
	}

	return &MirroredRecord{
		RecordID:       getUint(0),
		BusinessID:     getUint(1),
		Business:       getString(2),
		PlatformPostID: getString(3),
		ContentType:    getString(4),
		PostedAt:       getTime(5),
		Likes:          getInt64(6),
		Comments:       getInt64(7),
		Reach:          getInt64(8),
		Impressions:    getInt64(9),
		MirroredAt:     getTime(10),
	}
}

var _ Tracker = (*SheetsTracker)(nil)

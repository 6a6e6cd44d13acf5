package google

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"inspectsync/internal/models"
	"inspectsync/internal/snapshot"
)

// SheetsMirror overwrites one sheet of a spreadsheet with the snapshot.
type SheetsMirror struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsMirror authenticates with a service-account credentials file.
func NewSheetsMirror(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*SheetsMirror, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return NewSheetsMirrorWithService(srv, spreadsheetID, sheetName), nil
}

// NewSheetsMirrorWithService wraps an existing Sheets client.
func NewSheetsMirrorWithService(srv *sheets.Service, spreadsheetID, sheetName string) *SheetsMirror {
	return &SheetsMirror{service: srv, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func (m *SheetsMirror) Name() string {
	return "sheets"
}

// TestConnection reads the first header cell.
func (m *SheetsMirror) TestConnection(ctx context.Context) error {
	_, err := m.service.Spreadsheets.Values.Get(m.spreadsheetID, m.sheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// Mirror clears the sheet and writes the header followed by every booking.
func (m *SheetsMirror) Mirror(ctx context.Context, s *snapshot.Snapshot) error {
	values := bookingValues(s)

	_, err := m.service.Spreadsheets.Values.Clear(m.spreadsheetID, m.sheetName, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	rangeData := fmt.Sprintf("%s!A1:I%d", m.sheetName, len(values))
	_, err = m.service.Spreadsheets.Values.Update(m.spreadsheetID, rangeData, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update sheet: %w", err)
	}
	return nil
}

func bookingValues(s *snapshot.Snapshot) [][]interface{} {
	values := make([][]interface{}, 0, s.Len()+1)
	values = append(values, toInterfaces(models.Header))
	for _, b := range s.Bookings() {
		values = append(values, toInterfaces(b.Row()))
	}
	return values
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

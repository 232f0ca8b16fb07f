package repository

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// rawInput stores values exactly as given, so scraped text starting with
// "=" never becomes a formula
const rawInput = "RAW"

// SheetsRowStore implements RowStore on the first worksheet of a Google Sheet
type SheetsRowStore struct {
	srv           *sheets.Service
	spreadsheetID string
}

// NewSheetsRowStore authenticates with a service-account credentials file
func NewSheetsRowStore(ctx context.Context, spreadsheetID, credentialsFile string) (*SheetsRowStore, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return NewSheetsRowStoreWithService(srv, spreadsheetID), nil
}

// NewSheetsRowStoreWithService wraps an existing sheets service
func NewSheetsRowStoreWithService(srv *sheets.Service, spreadsheetID string) *SheetsRowStore {
	return &SheetsRowStore{srv: srv, spreadsheetID: spreadsheetID}
}

// Rows returns all values of the first worksheet
func (s *SheetsRowStore) Rows(ctx context.Context) ([][]string, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, "A:Z").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, v := range raw {
			row[i] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Cell reads one cell
func (s *SheetsRowStore) Cell(ctx context.Context, row, col int) (string, error) {
	cell := fmt.Sprintf("%s%d", columnLetter(col), row)
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, cell).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read cell %s: %w", cell, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", nil
	}
	return fmt.Sprint(resp.Values[0][0]), nil
}

// UpdateCell writes one cell
func (s *SheetsRowStore) UpdateCell(ctx context.Context, row, col int, value string) error {
	cell := fmt.Sprintf("%s%d", columnLetter(col), row)
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, cell, vr).
		ValueInputOption(rawInput).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update cell %s: %w", cell, err)
	}
	return nil
}

var updatedRowPattern = regexp.MustCompile(`![A-Z]+(\d+)`)

// AppendRow appends values below the last row of the table
func (s *SheetsRowStore) AppendRow(ctx context.Context, values []string) (int, error) {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}

	resp, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, "A1", &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).
		ValueInputOption(rawInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to append row: %w", err)
	}

	if resp.Updates != nil {
		if m := updatedRowPattern.FindStringSubmatch(resp.Updates.UpdatedRange); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, nil
			}
		}
	}

	rows, err := s.Rows(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Reset clears the worksheet, writes a bold frozen header, sizes the columns
// and installs a status dropdown on column E.
func (s *SheetsRowStore) Reset(ctx context.Context, header []string) error {
	spreadsheet, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	if len(spreadsheet.Sheets) == 0 {
		return fmt.Errorf("spreadsheet %s has no worksheets", s.spreadsheetID)
	}
	sheetID := spreadsheet.Sheets[0].Properties.SheetId

	if _, err := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	row := make([]interface{}, len(header))
	for i, v := range header {
		row[i] = v
	}
	if _, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, "A1", &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption(rawInput).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: sheetSetupRequests(sheetID, len(header))}
	if _, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to format sheet: %w", err)
	}
	return nil
}

var columnWidths = []int64{150, 300, 200, 400, 100, 120, 100, 120, 100, 200}

// statusValues mirrors models.JobStatuses; kept literal so repository stays model-agnostic
var statusValues = []string{"pending", "scraping", "emailing", "done", "paused"}

func sheetSetupRequests(sheetID int64, columns int) []*sheets.Request {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: gridRange(sheetID, 0, 1, 0, int64(columns)),
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
	}

	for i, width := range columnWidths {
		if i >= columns {
			break
		}
		requests = append(requests, &sheets.Request{
			UpdateDimensionProperties: &sheets.UpdateDimensionPropertiesRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "COLUMNS",
					StartIndex:      int64(i),
					EndIndex:        int64(i + 1),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
				Properties: &sheets.DimensionProperties{PixelSize: width},
				Fields:     "pixelSize",
			},
		})
	}

	conditionValues := make([]*sheets.ConditionValue, 0, len(statusValues))
	for _, v := range statusValues {
		conditionValues = append(conditionValues, &sheets.ConditionValue{UserEnteredValue: v})
	}
	requests = append(requests,
		&sheets.Request{
			SetDataValidation: &sheets.SetDataValidationRequest{
				Range: gridRange(sheetID, 1, 1000, 4, 5),
				Rule: &sheets.DataValidationRule{
					Condition: &sheets.BooleanCondition{
						Type:   "ONE_OF_LIST",
						Values: conditionValues,
					},
					ShowCustomUi: true,
					Strict:       true,
				},
			},
		},
		&sheets.Request{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:         sheetID,
					GridProperties:  &sheets.GridProperties{FrozenRowCount: 1},
					ForceSendFields: []string{"SheetId"},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	)
	return requests
}

// gridRange builds a range whose zero-valued indexes are still sent; sheet 0 is the default worksheet
func gridRange(sheetID, startRow, endRow, startCol, endCol int64) *sheets.GridRange {
	return &sheets.GridRange{
		SheetId:          sheetID,
		StartRowIndex:    startRow,
		EndRowIndex:      endRow,
		StartColumnIndex: startCol,
		EndColumnIndex:   endCol,
		ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
	}
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tutorbid/tutorbid-api/internal/dto"
	"github.com/tutorbid/tutorbid-api/internal/models"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
	"github.com/tutorbid/tutorbid-api/pkg/export"
)

// Availability exchange columns. Order and literals are part of the format.
var availabilityCSVHeaders = []string{
	"Date", "Start Time", "End Time", "Title", "Status", "Max Sessions", "Duration", "Notes",
}

type windowImporter interface {
	Create(ctx context.Context, instructorID string, req dto.CreateAvailabilityRequest) (*models.AvailabilityWindow, error)
	SetActive(ctx context.Context, instructorID, id string, active bool) error
	List(ctx context.Context, instructorID string) ([]models.AvailabilityWindow, error)
}

type statsReporter interface {
	Overview(ctx context.Context, instructorID string) (*models.SessionStats, error)
	Utilization(ctx context.Context, instructorID string) ([]models.WindowUtilization, error)
}

// ImportRowError records one rejected CSV row.
type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportReport summarizes an availability import. Bad rows never abort the
// rest of the file.
type ImportReport struct {
	Imported int              `json:"imported"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

// ExportService exchanges availability data as CSV and renders the PDF
// earnings report.
type ExportService struct {
	availability windowImporter
	stats        statsReporter
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	logger       *zap.Logger
}

// NewExportService builds the exchange service.
func NewExportService(availability windowImporter, stats statsReporter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		availability: availability,
		stats:        stats,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
	}
}

// ExportAvailabilityCSV renders the instructor's windows, one row per
// window, header row first.
func (s *ExportService) ExportAvailabilityCSV(ctx context.Context, instructorID string) ([]byte, error) {
	windows, err := s.availability.List(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: availabilityCSVHeaders}
	for _, window := range windows {
		status := "Inactive"
		if window.IsActive {
			status = "Active"
		}
		data.Rows = append(data.Rows, map[string]string{
			"Date":         window.Date,
			"Start Time":   window.StartTime,
			"End Time":     window.EndTime,
			"Title":        window.Title,
			"Status":       status,
			"Max Sessions": strconv.Itoa(window.MaxBookingsPerSlot),
			"Duration":     fmt.Sprintf("%d minutes", window.SlotDurationMinutes),
			"Notes":        window.Notes,
		})
	}
	raw, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render availability csv")
	}
	return raw, nil
}

// ImportAvailabilityCSV creates a window per row. Fields the format does not
// carry default to no buffer and a one hour minimum advance. Row failures
// are collected, not fatal.
func (s *ExportService) ImportAvailabilityCSV(ctx context.Context, instructorID string, raw []byte) (*ImportReport, error) {
	data, err := s.csv.Parse(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable csv")
	}
	if err := requireHeaders(data.Headers); err != nil {
		return nil, err
	}

	report := &ImportReport{}
	for i, row := range data.Rows {
		rowNum := i + 2 // header occupies row 1

		duration, err := parseDurationMinutes(row["Duration"])
		if err != nil {
			report.Errors = append(report.Errors, ImportRowError{Row: rowNum, Error: err.Error()})
			continue
		}
		maxSessions := 1
		if raw := strings.TrimSpace(row["Max Sessions"]); raw != "" {
			maxSessions, err = strconv.Atoi(raw)
			if err != nil {
				report.Errors = append(report.Errors, ImportRowError{Row: rowNum, Error: fmt.Sprintf("invalid max sessions %q", raw)})
				continue
			}
		}

		window, err := s.availability.Create(ctx, instructorID, dto.CreateAvailabilityRequest{
			Date:                strings.TrimSpace(row["Date"]),
			StartTime:           strings.TrimSpace(row["Start Time"]),
			EndTime:             strings.TrimSpace(row["End Time"]),
			SlotDurationMinutes: duration,
			BufferMinutes:       0,
			MaxBookingsPerSlot:  maxSessions,
			MinAdvanceHours:     1,
			Title:               row["Title"],
			Notes:               row["Notes"],
		})
		if err != nil {
			report.Errors = append(report.Errors, ImportRowError{Row: rowNum, Error: appErrors.FromError(err).Message})
			continue
		}
		if strings.EqualFold(strings.TrimSpace(row["Status"]), "Inactive") {
			if err := s.availability.SetActive(ctx, instructorID, window.ID, false); err != nil {
				report.Errors = append(report.Errors, ImportRowError{Row: rowNum, Error: appErrors.FromError(err).Message})
				continue
			}
		}
		report.Imported++
	}

	s.logger.Info("availability import finished",
		zap.String("instructor_id", instructorID),
		zap.Int("imported", report.Imported),
		zap.Int("rejected", len(report.Errors)),
	)
	return report, nil
}

// RenderReportPDF produces the earnings and utilization report.
func (s *ExportService) RenderReportPDF(ctx context.Context, instructorID string) ([]byte, error) {
	overview, err := s.stats.Overview(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	utilizations, err := s.stats.Utilization(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: []string{"Metric", "Value"},
		Rows: []map[string]string{
			{"Metric": "Pending requests", "Value": strconv.Itoa(overview.PendingRequests)},
			{"Metric": "Total earnings (cents)", "Value": strconv.FormatInt(overview.TotalEarnings, 10)},
			{"Metric": "Upcoming sessions", "Value": strconv.Itoa(overview.UpcomingSessions)},
			{"Metric": "Completion rate", "Value": fmt.Sprintf("%.1f%%", overview.CompletionRate)},
			{"Metric": "Average bid (cents)", "Value": fmt.Sprintf("%.0f", overview.AverageBid)},
		},
	}
	for _, u := range utilizations {
		data.Rows = append(data.Rows, map[string]string{
			"Metric": fmt.Sprintf("Window %s utilization", u.WindowID),
			"Value":  fmt.Sprintf("%.1f%% (%d/%d slots)", u.UtilizationRate, u.BookedSlots, u.TotalSlots),
		})
	}

	raw, err := s.pdf.Render(data, "Booking report")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render report pdf")
	}
	return raw, nil
}

func requireHeaders(headers []string) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	for _, required := range availabilityCSVHeaders {
		if !present[required] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("csv is missing the %q column", required))
		}
	}
	return nil
}

func parseDurationMinutes(raw string) (int, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "minutes"))
	minutes, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return minutes, nil
}

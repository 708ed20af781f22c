// Package export builds the mission register workbook handed to the archive
// service at the end of each period.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
)

const registerSheet = "Registre des missions"

var registerHeaders = []string{
	"Référence", "Objet", "Départ", "Retour", "Transport",
	"Statut", "Étape", "Véhicule", "Chauffeur", "Billet", "Coût total",
}

// RegisterExporter writes an institution's missions to an XLSX register
type RegisterExporter struct {
	missions port.MissionRepository
	store    port.DocumentStore
	logger   *zap.Logger
}

// NewRegisterExporter creates a new register exporter. A nil store disables
// archival; the workbook is still returned to the caller.
func NewRegisterExporter(missions port.MissionRepository, store port.DocumentStore, logger *zap.Logger) *RegisterExporter {
	return &RegisterExporter{
		missions: missions,
		store:    store,
		logger:   logger,
	}
}

// Export writes the register for an institution and returns the workbook
// bytes. Missions come out newest first, matching the repository listing.
func (e *RegisterExporter) Export(ctx context.Context, institutionID int64) ([]byte, error) {
	missions, err := e.missions.List(ctx, institutionID, 1000, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load missions for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(registerSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		e.logger.Warn("Failed to drop default sheet", zap.Error(err))
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range registerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		e.setCell(f, cell, header)
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(registerHeaders), 1)
	if err := f.SetCellStyle(registerSheet, "A1", lastCol, headerStyle); err != nil {
		e.logger.Warn("Failed to style header row", zap.Error(err))
	}

	for row, m := range missions {
		e.writeMission(f, row+2, m)
	}

	if err := f.SetColWidth(registerSheet, "A", "K", 18); err != nil {
		e.logger.Warn("Failed to set column widths", zap.Error(err))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	data := buf.Bytes()

	// Keep an archival copy. The caller still gets the workbook even when
	// the copy cannot be written.
	if e.store != nil {
		ref, err := e.store.Store(ctx, Filename(institutionID, time.Now()), data)
		if err != nil {
			e.logger.Warn("Failed to archive register copy", zap.Error(err))
		} else {
			e.logger.Info("Register copy archived", zap.String("reference", ref))
		}
	}

	e.logger.Info("Mission register exported",
		zap.Int64("institution_id", institutionID),
		zap.Int("missions", len(missions)))

	return data, nil
}

func (e *RegisterExporter) writeMission(f *excelize.File, row int, m *entity.Mission) {
	transport := m.TransportMode
	if m.TransportType != "" {
		transport = fmt.Sprintf("%s (%s)", m.TransportMode, m.TransportType)
	}

	vehicle := ""
	if m.VehiclePlate != "" {
		vehicle = fmt.Sprintf("%s %s %s", m.VehicleBrand, m.VehicleModel, m.VehiclePlate)
	}

	cost := ""
	if m.TotalCost != nil {
		cost = fmt.Sprintf("%.2f", *m.TotalCost)
	}

	values := []interface{}{
		m.Reference,
		m.Objet,
		m.DepartureDate.Format("02/01/2006"),
		m.ReturnDate.Format("02/01/2006"),
		transport,
		m.Status,
		m.CurrentStep,
		vehicle,
		m.DriverName,
		m.TicketRef,
		cost,
	}

	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		e.setCell(f, cell, v)
	}
}

func (e *RegisterExporter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(registerSheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

// Filename returns the register file name for the current period
func Filename(institutionID int64, now time.Time) string {
	return fmt.Sprintf("registre-missions-%d-%s.xlsx", institutionID, now.Format("2006-01"))
}

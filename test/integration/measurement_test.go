package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nutrirec/nutrirec/internal/domain/measurement"
)

func TestMeasurementHistory(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	clientSvc := newClientService()
	svc := newMeasurementService(clientSvc)

	c := seedClient(t, clientSvc, "منى حسن", 34, "female", "loss")

	jan1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	jan10 := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

	t.Run("AppendDerivesBMI", func(t *testing.T) {
		m := seedMeasurement(t, svc, c.ID, jan1, 170, 70)
		if m.BMI != 24.2 {
			t.Errorf("BMI = %v, want 24.2", m.BMI)
		}
		if m.ID == uuid.Nil {
			t.Fatal("expected non-nil ID after append")
		}
	})

	t.Run("AppendCountsVisit", func(t *testing.T) {
		before, err := clientSvc.GetClient(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetClient: %v", err)
		}

		seedMeasurement(t, svc, c.ID, jan10, 170, 68)

		after, err := clientSvc.GetClient(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetClient: %v", err)
		}
		if after.VisitCount != before.VisitCount+1 {
			t.Errorf("visit count = %d, want %d", after.VisitCount, before.VisitCount+1)
		}
	})

	t.Run("HistoryAscending", func(t *testing.T) {
		rows, total, err := svc.History(ctx, c.ID, nil, 50, 0)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if !rows[0].TakenAt.Before(rows[1].TakenAt) {
			t.Error("history must be ordered oldest first")
		}
		if rows[0].WeightKg != 70 || rows[1].WeightKg != 68 {
			t.Errorf("weights = %v, %v; want 70, 68", rows[0].WeightKg, rows[1].WeightKg)
		}
	})

	t.Run("HistorySince", func(t *testing.T) {
		since := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
		rows, total, err := svc.History(ctx, c.ID, &since, 50, 0)
		if err != nil {
			t.Fatalf("History since: %v", err)
		}
		if total != 1 || len(rows) != 1 {
			t.Fatalf("expected 1 row at or after %v, got total=%d len=%d", since, total, len(rows))
		}
		if !rows[0].TakenAt.Equal(jan10) {
			t.Errorf("TakenAt = %v, want %v", rows[0].TakenAt, jan10)
		}
	})

	t.Run("Latest", func(t *testing.T) {
		m, err := svc.Latest(ctx, c.ID)
		if err != nil {
			t.Fatalf("Latest: %v", err)
		}
		if !m.TakenAt.Equal(jan10) {
			t.Errorf("latest TakenAt = %v, want %v", m.TakenAt, jan10)
		}
	})

	t.Run("UnknownClient", func(t *testing.T) {
		err := svc.Append(ctx, &measurement.Measurement{
			ClientID: uuid.New(),
			HeightCm: 170,
			WeightKg: 70,
		})
		if !errors.Is(err, measurement.ErrClientNotFound) {
			t.Errorf("expected ErrClientNotFound, got %v", err)
		}
	})

	t.Run("SentBMIDiscarded", func(t *testing.T) {
		m := &measurement.Measurement{
			ClientID: c.ID,
			TakenAt:  time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC),
			HeightCm: 170,
			WeightKg: 66,
			BMI:      99.9,
		}
		if err := svc.Append(ctx, m); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if m.BMI != 22.8 {
			t.Errorf("BMI = %v, want the derived 22.8", m.BMI)
		}
	})
}

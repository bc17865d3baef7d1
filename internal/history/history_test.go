package history

import (
	"testing"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

func tx(id, userID string, ts time.Time, amount float64, device string) domain.Transaction {
	return domain.Transaction{
		ID:        id,
		UserID:    userID,
		Timestamp: ts,
		Amount:    amount,
		DeviceID:  device,
	}
}

func at(hour int) time.Time {
	return time.Date(2023, 6, 1, hour, 0, 0, 0, time.UTC)
}

func TestBuildGroupsAndSorts(t *testing.T) {
	// Out of order on purpose; the index must sort per user.
	batch := []domain.Transaction{
		tx("tx-3", "user-1", at(12), 300, "d1"),
		tx("tx-1", "user-1", at(8), 100, "d1"),
		tx("tx-9", "user-2", at(10), 900, "d2"),
		tx("tx-2", "user-1", at(10), 200, "d1"),
	}

	ix := Build(batch)
	if ix.Users() != 2 {
		t.Fatalf("expected 2 users, got %d", ix.Users())
	}

	view := ix.Before(&batch[0]) // tx-3 at 12:00
	if view.Len() != 2 {
		t.Fatalf("expected 2 prior transactions, got %d", view.Len())
	}
	prior := view.Transactions()
	if prior[0].ID != "tx-1" || prior[1].ID != "tx-2" {
		t.Errorf("expected chronological order tx-1, tx-2; got %s, %s", prior[0].ID, prior[1].ID)
	}
	if view.Last().ID != "tx-2" {
		t.Errorf("expected last prior tx-2, got %s", view.Last().ID)
	}
}

func TestBeforeIsStrictlyEarlier(t *testing.T) {
	// A transaction is never part of its own history, and same-instant
	// transactions are not each other's history.
	batch := []domain.Transaction{
		tx("tx-1", "user-1", at(10), 100, "d1"),
		tx("tx-2", "user-1", at(10), 200, "d1"),
		tx("tx-3", "user-1", at(12), 300, "d1"),
	}

	ix := Build(batch)

	if n := ix.Before(&batch[0]).Len(); n != 0 {
		t.Errorf("tx-1: expected 0 prior, got %d", n)
	}
	if n := ix.Before(&batch[1]).Len(); n != 0 {
		t.Errorf("tx-2 shares tx-1's instant: expected 0 prior, got %d", n)
	}
	if n := ix.Before(&batch[2]).Len(); n != 2 {
		t.Errorf("tx-3: expected 2 prior, got %d", n)
	}
}

func TestBeforeNeverSeesOtherUsers(t *testing.T) {
	batch := []domain.Transaction{
		tx("tx-1", "user-1", at(8), 100, "d1"),
		tx("tx-2", "user-2", at(12), 200, "d2"),
	}

	ix := Build(batch)
	if n := ix.Before(&batch[1]).Len(); n != 0 {
		t.Errorf("expected user-2 history to be empty, got %d", n)
	}
}

func TestSince(t *testing.T) {
	batch := []domain.Transaction{
		tx("tx-1", "user-1", at(10), 100, "d1"),
		tx("tx-2", "user-1", at(12), 200, "d1"),
	}

	ix := Build(batch)
	elapsed, ok := ix.Before(&batch[1]).Since(batch[1].Timestamp)
	if !ok {
		t.Fatal("expected a prior transaction")
	}
	if elapsed != 2*time.Hour {
		t.Errorf("expected 2h elapsed, got %s", elapsed)
	}

	if _, ok := ix.Before(&batch[0]).Since(batch[0].Timestamp); ok {
		t.Error("expected no elapsed time without prior history")
	}
}

func TestMeanAmount(t *testing.T) {
	batch := []domain.Transaction{
		tx("tx-1", "user-1", at(8), 100, "d1"),
		tx("tx-2", "user-1", at(9), 200, "d1"),
		tx("tx-3", "user-1", at(12), 999, "d1"),
	}

	ix := Build(batch)
	mean, ok := ix.Before(&batch[2]).MeanAmount()
	if !ok {
		t.Fatal("expected a defined mean")
	}
	if mean != 150 {
		t.Errorf("expected mean 150, got %v", mean)
	}

	if _, ok := ix.Before(&batch[0]).MeanAmount(); ok {
		t.Error("expected undefined mean without prior history")
	}
}

func TestFrequentDevice(t *testing.T) {
	batch := []domain.Transaction{
		tx("tx-1", "user-1", at(7), 100, "d-main"),
		tx("tx-2", "user-1", at(8), 100, "d-main"),
		tx("tx-3", "user-1", at(9), 100, "d-other"),
		tx("tx-4", "user-1", at(12), 100, "d-new"),
	}

	ix := Build(batch)
	device, ok := ix.Before(&batch[3]).FrequentDevice()
	if !ok {
		t.Fatal("expected a known device")
	}
	if device != "d-main" {
		t.Errorf("expected d-main, got %s", device)
	}
}

func TestFrequentDeviceTieBreak(t *testing.T) {
	// d-a and d-b each appear twice; d-a was first seen earlier.
	batch := []domain.Transaction{
		tx("tx-1", "user-1", at(6), 100, "d-a"),
		tx("tx-2", "user-1", at(7), 100, "d-b"),
		tx("tx-3", "user-1", at(8), 100, "d-b"),
		tx("tx-4", "user-1", at(9), 100, "d-a"),
		tx("tx-5", "user-1", at(12), 100, "d-c"),
	}

	ix := Build(batch)
	device, ok := ix.Before(&batch[4]).FrequentDevice()
	if !ok {
		t.Fatal("expected a known device")
	}
	if device != "d-a" {
		t.Errorf("expected tie to resolve to earliest-seen d-a, got %s", device)
	}
}

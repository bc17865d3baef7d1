package loader

import (
	"strings"
	"testing"
	"time"
)

const header = "transaction_id,user_id,timestamp,amount,location,device_id,is_foreign\n"

func TestLoadValidBatch(t *testing.T) {
	csv := header +
		"tx-1,user-1,2023-06-01 14:00:00,125.50,CDMX,device-a,0\n" +
		"tx-2,user-2,2023-06-01T03:00:00,25000,Monterrey,device-b,true\n"

	result, err := Load(strings.NewReader(csv), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped != 0 {
		t.Errorf("expected 0 skipped, got %d", result.Skipped)
	}
	if len(result.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(result.Transactions))
	}

	tx := result.Transactions[0]
	if tx.ID != "tx-1" || tx.UserID != "user-1" {
		t.Errorf("unexpected identity: %s / %s", tx.ID, tx.UserID)
	}
	if tx.Amount != 125.50 {
		t.Errorf("expected amount 125.50, got %v", tx.Amount)
	}
	if tx.Timestamp.Hour() != 14 {
		t.Errorf("expected hour 14, got %d", tx.Timestamp.Hour())
	}
	if tx.IsForeign {
		t.Error("expected tx-1 to be domestic")
	}
	if !result.Transactions[1].IsForeign {
		t.Error("expected tx-2 to be foreign")
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	csv := header +
		"tx-1,user-1,2023-06-01 14:00:00,100,CDMX,device-a,0\n" +
		"tx-2,user-2,not-a-timestamp,100,CDMX,device-a,0\n" +
		"tx-3,user-3,2023-06-01 15:00:00,abc,CDMX,device-a,0\n" +
		"tx-4,user-4,2023-06-01 16:00:00,-50,CDMX,device-a,0\n" +
		",user-5,2023-06-01 17:00:00,100,CDMX,device-a,0\n" +
		"tx-6,,2023-06-01 18:00:00,100,CDMX,device-a,0\n" +
		"tx-7,user-7,2023-06-01 19:00:00,100,CDMX,device-a,maybe\n" +
		"tx-8,user-8,2023-06-01 20:00:00,100,CDMX,device-a,1\n"

	result, err := Load(strings.NewReader(csv), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Transactions) != 2 {
		t.Fatalf("expected 2 valid transactions, got %d", len(result.Transactions))
	}
	if result.Skipped != 6 {
		t.Errorf("expected 6 skipped, got %d", result.Skipped)
	}
	if result.Transactions[0].ID != "tx-1" || result.Transactions[1].ID != "tx-8" {
		t.Errorf("unexpected survivors: %s, %s",
			result.Transactions[0].ID, result.Transactions[1].ID)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	csv := "transaction_id,user_id,timestamp,amount,location,device_id\n" +
		"tx-1,user-1,2023-06-01 14:00:00,100,CDMX,device-a\n"

	if _, err := Load(strings.NewReader(csv), time.UTC); err == nil {
		t.Error("expected error for a header missing is_foreign")
	}
}

func TestLoadHeaderIsCaseInsensitive(t *testing.T) {
	csv := "Transaction_ID,User_ID,Timestamp,Amount,Location,Device_ID,Is_Foreign\n" +
		"tx-1,user-1,2023-06-01 14:00:00,100,CDMX,device-a,0\n"

	result, err := Load(strings.NewReader(csv), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(result.Transactions))
	}
}

func TestLoadExtraColumnsIgnored(t *testing.T) {
	csv := "transaction_id,user_id,timestamp,amount,location,device_id,is_foreign,merchant\n" +
		"tx-1,user-1,2023-06-01 14:00:00,100,CDMX,device-a,0,acme\n"

	result, err := Load(strings.NewReader(csv), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(result.Transactions))
	}
}

func TestLoadZonedAndNaiveTimestamps(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}

	csv := header +
		"tx-1,user-1,2023-06-01T14:00:00Z,100,CDMX,device-a,0\n" +
		"tx-2,user-1,2023-06-01 14:00:00,100,CDMX,device-a,0\n"

	result, err := Load(strings.NewReader(csv), loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(result.Transactions))
	}

	// The zoned row keeps its offset; the naive row is interpreted in
	// the configured location.
	if !result.Transactions[0].Timestamp.Equal(time.Date(2023, 6, 1, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected zoned timestamp: %v", result.Transactions[0].Timestamp)
	}
	if got := result.Transactions[1].Timestamp; got.Location().String() != loc.String() {
		t.Errorf("expected naive timestamp in %s, got %s", loc, got.Location())
	}
}

func TestLoadEmptyInput(t *testing.T) {
	if _, err := Load(strings.NewReader(""), time.UTC); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestLoadHeaderOnly(t *testing.T) {
	result, err := Load(strings.NewReader(header), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Transactions) != 0 || result.Skipped != 0 {
		t.Errorf("expected empty result, got %d transactions, %d skipped",
			len(result.Transactions), result.Skipped)
	}
}

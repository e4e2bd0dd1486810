package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestReadRange_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.ReadRange(context.Background(), "A:G"); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestReadRange(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Data!A1:C3","majorDimension":"ROWS","values":[["Category","Value"," Customer "],["Toys",12.5],["Books",3,"Bob"]]}`))
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c := NewWithService(svc, "sheet-id")

	got, err := c.ReadRange(context.Background(), "Data!A1:C3")
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	want := [][]string{
		{"Category", "Value", "Customer"},
		{"Toys", "12.5"},
		{"Books", "3", "Bob"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("values = %v, want %v", got, want)
	}
	if !strings.Contains(gotPath, "/spreadsheets/sheet-id/values/") {
		t.Fatalf("unexpected request path %q", gotPath)
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]interface{}{" a ", 1.5, nil, true})
	want := []string{"a", "1.5", "", "true"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("toStrings = %v, want %v", got, want)
	}
}

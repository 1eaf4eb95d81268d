package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
)

func TestCustomerService_ImportCSV(t *testing.T) {
	input := strings.Join([]string{
		"\ufeffName,Phone Number,ID",
		"Alice Wanjiru,+254 700-000-001,c-1",
		"Brian Otieno,0700000002,",
		"No Phone,,c-3",
		",,",
		"Dup,0700000004,c-1",
	}, "\n")

	repo := &mockCustomerRepo{}
	svc := NewCustomerService(repo, testLogger())

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportCSV() error = %v", err)
	}

	if result.Imported != 2 {
		t.Errorf("Imported = %d, want 2", result.Imported)
	}
	if len(result.Rejected) != 2 {
		t.Fatalf("Rejected = %+v, want 2 rows", result.Rejected)
	}
	if result.Rejected[0].Row != 4 || result.Rejected[1].Row != 6 {
		t.Errorf("rejected rows = %d, %d, want 4, 6", result.Rejected[0].Row, result.Rejected[1].Row)
	}

	if len(repo.customers) != 2 {
		t.Fatalf("stored %d customers, want 2", len(repo.customers))
	}
	if got := repo.customers[0]; got.ID != "c-1" || got.Phone != "+254700000001" || got.Name != "Alice Wanjiru" {
		t.Errorf("first customer = %+v", got)
	}
	if got := repo.customers[1]; got.ID == "" {
		t.Error("missing id was not assigned")
	}
}

func TestCustomerService_ImportCSV_BadHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty file", input: ""},
		{name: "no phone column", input: "id,name\n1,Alice\n"},
	}

	svc := NewCustomerService(&mockCustomerRepo{}, testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportCSV(context.Background(), strings.NewReader(tt.input))
			var appErr *models.AppError
			if !errors.As(err, &appErr) || appErr.Code != models.CodeInvalidInput {
				t.Errorf("ImportCSV() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestCustomerService_ImportCSV_RepoFailure(t *testing.T) {
	repo := &mockCustomerRepo{upsertErr: errors.New("connection reset")}
	svc := NewCustomerService(repo, testLogger())

	_, err := svc.ImportCSV(context.Background(), strings.NewReader("phone\n0700000001\n"))
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("ImportCSV() error = %v, want wrapped repo error", err)
	}
}

func TestCustomerService_List(t *testing.T) {
	svc := NewCustomerService(seedCustomers(5), testLogger())

	result, err := svc.List(context.Background(), models.CustomerFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Data) != 2 || result.Data[0].ID != "cust-2" {
		t.Errorf("Data = %+v", result.Data)
	}
	if result.Pagination.TotalPages != 3 || result.Pagination.TotalCount != 5 {
		t.Errorf("Pagination = %+v", result.Pagination)
	}
}

func TestCustomerService_ImportCSV_MalformedRow(t *testing.T) {
	repo := &mockCustomerRepo{}
	svc := NewCustomerService(repo, testLogger())

	input := "name,phone\nAlice,0700000001\n\"Bro\"ken,0700000002\nCarol,0700000003\n"
	result, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportCSV() error = %v", err)
	}
	if result.Imported != 2 {
		t.Errorf("Imported = %d, want 2", result.Imported)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Row != 3 {
		t.Errorf("Rejected = %+v, want row 3", result.Rejected)
	}
}

type failingReader struct {
	data string
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	return copy(p, r.data), nil
}

func TestCustomerService_ImportCSV_ReadFailureAborts(t *testing.T) {
	repo := &mockCustomerRepo{}
	svc := NewCustomerService(repo, testLogger())

	readErr := errors.New("body too large")
	_, err := svc.ImportCSV(context.Background(), &failingReader{
		data: "name,phone\nAlice,0700000001\n",
		err:  readErr,
	})
	if !errors.Is(err, readErr) {
		t.Fatalf("ImportCSV() error = %v, want %v", err, readErr)
	}
	if len(repo.customers) != 0 {
		t.Errorf("stored %d customers after a failed read", len(repo.customers))
	}
}

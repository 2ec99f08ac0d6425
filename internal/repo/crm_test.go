package repo_test

import (
	"context"
	"fmt"
	"testing"

	"fundline/internal/db"
	"fundline/internal/domain"
	"fundline/internal/migrate"
	"fundline/internal/repo"
)

func newRepo(t *testing.T) (repo.Repo, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	return repo.Repo{DB: conn}, context.Background()
}

func TestLenderFiltersMatchDealAmount(t *testing.T) {
	r, ctx := newRepo(t)
	insert := func(id string, min, max float64, grade string, active bool) {
		l := domain.Lender{
			ID: id, Name: id, MinAmount: min, MaxAmount: max, PaperGrade: grade, Active: active,
			CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
		}
		if err := r.InsertLender(ctx, l); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	insert("small", 5000, 50000, "A", true)
	insert("large", 50000, 2000000, "B", true)
	insert("dormant", 5000, 2000000, "A", false)
	insert("uncapped", 100000, 0, "A", true)

	got, err := r.ListLenders(ctx, repo.LenderFilters{ActiveOnly: true, Amount: 75000})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "large" {
		t.Fatalf("amount match: %+v", got)
	}

	// max_amount 0 means no cap, so any amount over the minimum matches
	got, err = r.ListLenders(ctx, repo.LenderFilters{ActiveOnly: true, Amount: 5000000})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "uncapped" {
		t.Fatalf("uncapped match: %+v", got)
	}

	got, err = r.ListLenders(ctx, repo.LenderFilters{PaperGrade: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("grade filter should include inactive: %+v", got)
	}
}

func TestLenderIndustriesRoundTrip(t *testing.T) {
	r, ctx := newRepo(t)
	l := domain.Lender{
		ID: "l1", Name: "Bridge Capital", MinAmount: 10000, MaxAmount: 500000,
		Industries: []string{"construction", "trucking"}, Active: true,
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}
	if err := r.InsertLender(ctx, l); err != nil {
		t.Fatal(err)
	}
	got, err := r.GetLender(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Industries) != 2 || got.Industries[0] != "construction" {
		t.Fatalf("industries: %+v", got.Industries)
	}
}

func TestCustomerCursorPagination(t *testing.T) {
	r, ctx := newRepo(t)
	for i := 0; i < 5; i++ {
		c := domain.Customer{
			ID:           fmt.Sprintf("c%d", i),
			BusinessName: fmt.Sprintf("Biz %d", i),
			Stage:        domain.StageLead,
			CreatedAt:    fmt.Sprintf("2026-01-0%dT00:00:00Z", i+1),
			UpdatedAt:    fmt.Sprintf("2026-01-0%dT00:00:00Z", i+1),
		}
		if err := r.InsertCustomer(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	page, err := r.ListCustomers(ctx, repo.CustomerFilters{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID != "c4" || page[1].ID != "c3" {
		t.Fatalf("first page: %+v", page)
	}

	last := page[len(page)-1]
	page, err = r.ListCustomers(ctx, repo.CustomerFilters{
		Limit: 2, CursorCreatedAt: last.CreatedAt, CursorID: last.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID != "c2" || page[1].ID != "c1" {
		t.Fatalf("second page: %+v", page)
	}
}

func TestCustomerSearchAndStageFilter(t *testing.T) {
	r, ctx := newRepo(t)
	mk := func(id, name, owner string, stage domain.Stage) {
		c := domain.Customer{
			ID: id, BusinessName: name, OwnerName: owner, Stage: stage,
			CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
		}
		if err := r.InsertCustomer(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	mk("c1", "Acme Paving", "Ann", domain.StageLead)
	mk("c2", "Beta Tools", "Bob", domain.StageOffer)
	mk("c3", "Acme Roofing", "Cal", domain.StageOffer)

	got, err := r.ListCustomers(ctx, repo.CustomerFilters{Search: "acme", Stage: "offer"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "c3" {
		t.Fatalf("search+stage: %+v", got)
	}

	counts, err := r.CountCustomersByStage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["lead"] != 1 || counts["offer"] != 2 {
		t.Fatalf("counts: %+v", counts)
	}
}

func TestMessageFiltersAndUnreadCount(t *testing.T) {
	r, ctx := newRepo(t)
	if err := r.InsertCustomer(ctx, domain.Customer{
		ID: "c1", BusinessName: "Acme", Stage: domain.StageLead,
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		m := domain.Message{
			ID: fmt.Sprintf("m%d", i), CustomerID: "c1", SenderID: "rep",
			Subject: fmt.Sprintf("update %d", i), CreatedAt: fmt.Sprintf("2026-02-0%dT00:00:00Z", i+1),
		}
		if err := r.InsertMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	if err := r.MarkMessageRead(ctx, "m0"); err != nil {
		t.Fatal(err)
	}
	unread, err := r.CountUnreadMessages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if unread != 2 {
		t.Fatalf("unread: %d", unread)
	}

	got, err := r.ListMessages(ctx, repo.MessageFilters{CustomerID: "c1", UnreadOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("unread list: %+v", got)
	}

	if err := r.MarkMessageRead(ctx, "ghost"); err == nil {
		t.Fatal("expected not found for unknown message")
	}
}

package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"studiodesk_backend/internal/email"
	"studiodesk_backend/internal/events"
	"studiodesk_backend/internal/quotes/alerts"
	"studiodesk_backend/internal/quotes/domain"
	"studiodesk_backend/internal/quotes/pricing"
	"studiodesk_backend/internal/quotes/repository"
	"studiodesk_backend/internal/quotes/scheduling"
	"studiodesk_backend/internal/quotes/transport"
	"studiodesk_backend/platform/apperr"
	"studiodesk_backend/platform/config"
	"studiodesk_backend/platform/logger"
)

// fakeRepo is an in-memory Repository. It mirrors the SQL behavior the
// service depends on: CreateLocked redoes the conflict check before insert
// and stamps the conflict flag.
type fakeRepo struct {
	quotes     []domain.Quote
	flagWrites map[uuid.UUID]bool
}

func newFakeRepo(quotes ...domain.Quote) *fakeRepo {
	return &fakeRepo{quotes: quotes, flagWrites: make(map[uuid.UUID]bool)}
}

func (r *fakeRepo) ActiveQuotesAt(_ context.Context, date time.Time, t domain.TimeOfDay, excludeID uuid.UUID) ([]domain.Quote, error) {
	var out []domain.Quote
	for _, q := range r.quotes {
		if q.ID == excludeID || !q.IsActive() || !q.HasSlot() {
			continue
		}
		if q.EventDate.Equal(date) && *q.EventTime == t {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepo) CountActiveOn(_ context.Context, date time.Time) (int, error) {
	count := 0
	for _, q := range r.quotes {
		if q.IsActive() && q.EventDate != nil && q.EventDate.Equal(date) {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) BusyDays(ctx context.Context, ceiling int) ([]alerts.BusyDay, error) {
	counts := make(map[time.Time]int)
	for _, q := range r.quotes {
		if q.IsActive() && q.EventDate != nil {
			counts[*q.EventDate]++
		}
	}
	var out []alerts.BusyDay
	for d, n := range counts {
		if n > ceiling {
			out = append(out, alerts.BusyDay{Date: d, Count: n})
		}
	}
	return out, nil
}

func (r *fakeRepo) ActiveQuotesOn(_ context.Context, date time.Time) ([]domain.Quote, error) {
	var out []domain.Quote
	for _, q := range r.quotes {
		if q.IsActive() && q.EventDate != nil && q.EventDate.Equal(date) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepo) StaleQuotes(_ context.Context, cutoff time.Time) ([]domain.Quote, error) {
	var out []domain.Quote
	for _, q := range r.quotes {
		if (q.Status == domain.StatusPending || q.Status == domain.StatusRejected) && q.CreatedAt.Before(cutoff) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeRepo) StatusCounts(_ context.Context) (map[domain.Status]int, error) {
	counts := make(map[domain.Status]int)
	for _, q := range r.quotes {
		counts[q.Status]++
	}
	return counts, nil
}

func (r *fakeRepo) CreateLocked(ctx context.Context, q *domain.Quote) (domain.Quote, []domain.Quote, error) {
	var conflicting []domain.Quote
	if q.HasSlot() {
		var err error
		conflicting, err = r.ActiveQuotesAt(ctx, *q.EventDate, *q.EventTime, uuid.Nil)
		if err != nil {
			return domain.Quote{}, nil, err
		}
	}
	created := *q
	created.ID = uuid.New()
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	created.HasConflict = len(conflicting) > 0
	r.quotes = append(r.quotes, created)
	return created, conflicting, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Quote, error) {
	for _, q := range r.quotes {
		if q.ID == id {
			return q, nil
		}
	}
	return domain.Quote{}, apperr.NotFound("quote request not found")
}

func (r *fakeRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Quote, error) {
	var out []domain.Quote
	for _, q := range r.quotes {
		for _, id := range ids {
			if q.ID == id {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

func (r *fakeRepo) List(_ context.Context, _ repository.ListQuotesParams) ([]domain.Quote, int, error) {
	out := make([]domain.Quote, len(r.quotes))
	copy(out, r.quotes)
	return out, len(out), nil
}

func (r *fakeRepo) Update(_ context.Context, q *domain.Quote) (domain.Quote, error) {
	for i := range r.quotes {
		if r.quotes[i].ID == q.ID {
			updated := *q
			updated.UpdatedAt = time.Now().UTC()
			r.quotes[i] = updated
			return updated, nil
		}
	}
	return domain.Quote{}, apperr.NotFound("quote request not found")
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i := range r.quotes {
		if r.quotes[i].ID == id {
			r.quotes = append(r.quotes[:i], r.quotes[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("quote request not found")
}

func (r *fakeRepo) UpdateConflictFlag(_ context.Context, id uuid.UUID, hasConflict bool) error {
	r.flagWrites[id] = hasConflict
	for i := range r.quotes {
		if r.quotes[i].ID == id {
			r.quotes[i].HasConflict = hasConflict
		}
	}
	return nil
}

func (r *fakeRepo) UpdateSnapshots(_ context.Context, id uuid.UUID, snapshots []domain.ServiceSnapshot) error {
	for i := range r.quotes {
		if r.quotes[i].ID == id {
			r.quotes[i].SelectedServices = snapshots
		}
	}
	return nil
}

func (r *fakeRepo) BulkDelete(_ context.Context, ids []uuid.UUID) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if err := r.Delete(context.Background(), id); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeRepo) BulkUpdateStatus(_ context.Context, ids []uuid.UUID, status domain.Status) (int64, error) {
	var updated int64
	for i := range r.quotes {
		for _, id := range ids {
			if r.quotes[i].ID == id {
				r.quotes[i].Status = status
				updated++
			}
		}
	}
	return updated, nil
}

func (r *fakeRepo) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.Quote
	var deleted int64
	for _, q := range r.quotes {
		if (q.Status == domain.StatusPending || q.Status == domain.StatusRejected) && q.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, q)
	}
	r.quotes = kept
	return deleted, nil
}

func (r *fakeRepo) DeleteExcessOn(ctx context.Context, date time.Time, keep int) (int64, error) {
	active, err := r.ActiveQuotesOn(ctx, date)
	if err != nil {
		return 0, err
	}
	if len(active) <= keep {
		return 0, nil
	}
	var deleted int64
	for _, q := range active[keep:] {
		if err := r.Delete(ctx, q.ID); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

var _ repository.Repository = (*fakeRepo)(nil)

// sentEmail records one Sender call. reason is only set for the rejection
// and cancellation emails.
type sentEmail struct {
	kind   string
	to     string
	reason string
}

type fakeSender struct {
	sent    []sentEmail
	failAll error
}

func (s *fakeSender) record(kind, to string) error {
	s.sent = append(s.sent, sentEmail{kind: kind, to: to})
	return s.failAll
}

func (s *fakeSender) recordReason(kind, to, reason string) error {
	s.sent = append(s.sent, sentEmail{kind: kind, to: to, reason: reason})
	return s.failAll
}

func (s *fakeSender) SendQuoteSubmittedEmail(_ context.Context, to string, _ email.BookingDetails, _ bool, _ string) error {
	return s.record("quote_submitted", to)
}

func (s *fakeSender) SendNewQuoteAlertEmail(_ context.Context, to string, _ email.BookingDetails, _, _ string, _ bool) error {
	return s.record("new_quote_alert", to)
}

func (s *fakeSender) SendQuoteSentEmail(_ context.Context, to string, _ email.BookingDetails) error {
	return s.record("quote_sent", to)
}

func (s *fakeSender) SendQuoteAcceptedEmail(_ context.Context, to string, _ email.BookingDetails) error {
	return s.record("quote_accepted", to)
}

func (s *fakeSender) SendQuoteRejectedEmail(_ context.Context, to string, _ email.BookingDetails, reason string) error {
	return s.recordReason("quote_rejected", to, reason)
}

func (s *fakeSender) SendQuoteCancelledEmail(_ context.Context, to string, _ email.BookingDetails, reason string) error {
	return s.recordReason("quote_cancelled", to, reason)
}

func (s *fakeSender) SendQuoteRescheduledEmail(_ context.Context, to string, _ email.BookingDetails, _, _ string) error {
	return s.record("quote_rescheduled", to)
}

// recordingBus captures published events synchronously so tests can assert
// on them without timing games.
type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) byName(name string) []events.Event {
	var out []events.Event
	for _, e := range b.published {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeCatalog struct {
	services map[uuid.UUID]pricing.CatalogService
}

func (c *fakeCatalog) ActiveServices(_ context.Context, ids []uuid.UUID) ([]pricing.CatalogService, error) {
	out := make([]pricing.CatalogService, 0, len(ids))
	for _, id := range ids {
		if svc, ok := c.services[id]; ok {
			out = append(out, svc)
		}
	}
	return out, nil
}

func f(v float64) *float64 { return &v }

func testHours(t *testing.T) scheduling.WeeklyHours {
	t.Helper()
	raw := map[time.Weekday]config.HoursRange{
		time.Monday:    {Open: "09:00", Close: "17:00"},
		time.Tuesday:   {Open: "10:00", Close: "17:00"},
		time.Wednesday: {Open: "09:00", Close: "17:00"},
		time.Thursday:  {Open: "09:00", Close: "17:00"},
		time.Friday:    {Open: "09:00", Close: "17:00"},
	}
	hours, err := scheduling.NewWeeklyHours(raw)
	if err != nil {
		t.Fatalf("NewWeeklyHours: %v", err)
	}
	return hours
}

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	sender  *fakeSender
	bus     *recordingBus
	catalog *fakeCatalog
}

func newFixture(t *testing.T, ceiling int, quotes ...domain.Quote) *fixture {
	t.Helper()
	repo := newFakeRepo(quotes...)
	sender := &fakeSender{}
	bus := &recordingBus{}
	catalog := &fakeCatalog{services: make(map[uuid.UUID]pricing.CatalogService)}
	svc := New(repo, catalog, testHours(t), ceiling, 30*24*time.Hour, sender, bus, logger.New("test"))
	return &fixture{svc: svc, repo: repo, sender: sender, bus: bus, catalog: catalog}
}

func (fx *fixture) addService(t *testing.T, title string, min, max float64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	fx.catalog.services[id] = pricing.CatalogService{
		ID: id, Title: title, Category: "photography", PriceMin: f(min), PriceMax: f(max),
	}
	return id
}

func mustTimeOfDay(t *testing.T, raw string) domain.TimeOfDay {
	t.Helper()
	tod, err := domain.ParseTimeOfDay(raw)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", raw, err)
	}
	return tod
}

// futureMonday returns a Monday at least a week out, so slot updates never
// trip the past-date guard.
func futureMonday() time.Time {
	d := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 7)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func pendingQuote(t *testing.T, eventDate time.Time, eventTime string, createdAt time.Time) domain.Quote {
	t.Helper()
	tod := mustTimeOfDay(t, eventTime)
	return domain.Quote{
		ID:          uuid.New(),
		CreatedAt:   createdAt,
		ClientName:  "Existing Client",
		ClientEmail: "existing@example.com",
		ClientPhone: "+254700000000",
		EventType:   "portrait",
		EventDate:   &eventDate,
		EventTime:   &tod,
		Status:      domain.StatusPending,
	}
}

// monday is an open day in testHours with a 09:00 open; tuesday opens at
// 10:00 and sunday is closed.
var (
	monday  = futureMonday()
	tuesday = monday.AddDate(0, 0, 1)
	sunday  = monday.AddDate(0, 0, 6)
)

func createRequest(serviceID uuid.UUID) transport.CreateQuoteRequest {
	// The phone arrives in local format; persistence normalizes it to E.164.
	return transport.CreateQuoteRequest{
		ClientName:       "Achieng Otieno",
		ClientEmail:      "achieng@example.com",
		ClientPhone:      "0712 345 678",
		EventType:        "wedding",
		EventDate:        monday.Format("2006-01-02"),
		EventTime:        "14:00",
		SelectedServices: []pricing.ServiceRef{{ID: serviceID}},
	}
}

func TestCreateHappyPath(t *testing.T) {
	fx := newFixture(t, 5)
	svcID := fx.addService(t, "Wedding Photography", 50000, 120000)

	resp, err := fx.svc.Create(context.Background(), createRequest(svcID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Warning != nil {
		t.Fatalf("unexpected conflict warning: %+v", resp.Warning)
	}
	if !resp.ProcessingInfo.ClientEmailSent {
		t.Fatal("expected client email to be reported sent")
	}
	if resp.Quote.Status != string(domain.StatusPending) {
		t.Fatalf("status = %s, want pending", resp.Quote.Status)
	}
	if len(fx.repo.quotes) != 1 {
		t.Fatalf("stored %d quotes, want 1", len(fx.repo.quotes))
	}
	if len(fx.sender.sent) != 1 || fx.sender.sent[0].kind != "quote_submitted" {
		t.Fatalf("sent emails = %+v, want one quote_submitted", fx.sender.sent)
	}

	if fx.repo.quotes[0].ClientPhone != "+254712345678" {
		t.Fatalf("stored phone = %s", fx.repo.quotes[0].ClientPhone)
	}

	published := fx.bus.byName("quotes.quote.submitted")
	if len(published) != 1 {
		t.Fatalf("published %d QuoteSubmitted events, want 1", len(published))
	}
	ev := published[0].(events.QuoteSubmitted)
	if ev.HasConflict {
		t.Fatal("event should not carry a conflict")
	}
	if len(ev.Services) != 1 || ev.Services[0] != "Wedding Photography" {
		t.Fatalf("event services = %v", ev.Services)
	}
}

func TestCreateRejectsUnknownServices(t *testing.T) {
	fx := newFixture(t, 5)

	_, err := fx.svc.Create(context.Background(), createRequest(uuid.New()))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if len(fx.repo.quotes) != 0 {
		t.Fatal("nothing should be persisted")
	}
}

func TestCreateRejectsPastEventDate(t *testing.T) {
	fx := newFixture(t, 5)
	svcID := fx.addService(t, "Portraits", 5000, 9000)

	req := createRequest(svcID)
	req.EventDate = time.Now().UTC().AddDate(0, 0, -17).Format("2006-01-02")
	_, err := fx.svc.Create(context.Background(), req)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if len(fx.repo.quotes) != 0 {
		t.Fatal("nothing should be persisted")
	}
}

func TestCreateRejectsOutsideStudioHours(t *testing.T) {
	fx := newFixture(t, 5)
	svcID := fx.addService(t, "Portraits", 5000, 9000)

	req := createRequest(svcID)
	req.EventTime = "22:00"
	if _, err := fx.svc.Create(context.Background(), req); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("late time: err = %v, want validation error", err)
	}

	req = createRequest(svcID)
	req.EventDate = sunday.Format("2006-01-02") // closed in the test hours
	if _, err := fx.svc.Create(context.Background(), req); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("closed day: err = %v, want validation error", err)
	}
	if len(fx.repo.quotes) != 0 {
		t.Fatal("nothing should be persisted")
	}
}

func TestCreateFullDayRejectedWithSuggestion(t *testing.T) {
	fx := newFixture(t, 2,
		pendingQuote(t, monday, "09:00", time.Now().Add(-2*time.Hour)),
		pendingQuote(t, monday, "11:00", time.Now().Add(-time.Hour)),
	)
	svcID := fx.addService(t, "Portraits", 5000, 9000)

	_, err := fx.svc.Create(context.Background(), createRequest(svcID))
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict error", err)
	}
	appErr := err.(*apperr.Error)
	details, ok := appErr.Details.(map[string]any)
	if !ok {
		t.Fatalf("details = %T, want map", appErr.Details)
	}
	if details["suggested_date"] != tuesday.Format("2006-01-02") {
		t.Fatalf("suggested_date = %v, want %s", details["suggested_date"], tuesday.Format("2006-01-02"))
	}
	if details["rescheduling_required"] != true {
		t.Fatal("expected rescheduling_required")
	}
}

func TestCreateAutoRescheduleAdoptsSuggestedDay(t *testing.T) {
	fx := newFixture(t, 2,
		pendingQuote(t, monday, "09:00", time.Now().Add(-2*time.Hour)),
		pendingQuote(t, monday, "11:00", time.Now().Add(-time.Hour)),
	)
	svcID := fx.addService(t, "Portraits", 5000, 9000)

	req := createRequest(svcID)
	req.EventTime = "09:30" // Tuesday opens at 10:00
	req.AutoReschedule = true

	resp, err := fx.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !resp.ProcessingInfo.Rescheduled {
		t.Fatal("expected rescheduled processing info")
	}
	if resp.ProcessingInfo.OriginalDate != monday.Format("2006-01-02") {
		t.Fatalf("original date = %s", resp.ProcessingInfo.OriginalDate)
	}
	if resp.Quote.EventDate == nil || *resp.Quote.EventDate != tuesday.Format("2006-01-02") {
		t.Fatalf("event date = %v, want %s", resp.Quote.EventDate, tuesday.Format("2006-01-02"))
	}
	// The requested time predates Tuesday's opening, so it snaps forward.
	if resp.Quote.EventTime == nil || *resp.Quote.EventTime != "10:00" {
		t.Fatalf("event time = %v, want 10:00", resp.Quote.EventTime)
	}
}

func TestCreateRecordsConflictWithWarning(t *testing.T) {
	fx := newFixture(t, 5, pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour)))
	svcID := fx.addService(t, "Portraits", 5000, 9000)

	resp, err := fx.svc.Create(context.Background(), createRequest(svcID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Warning == nil || resp.Warning.ConflictingQuotes != 1 {
		t.Fatalf("warning = %+v, want 1 conflicting quote", resp.Warning)
	}
	if !resp.Quote.HasConflict {
		t.Fatal("quote should be flagged as conflicting")
	}
	if len(fx.repo.quotes) != 2 {
		t.Fatal("conflicting submission must still persist")
	}

	ev := fx.bus.byName("quotes.quote.submitted")[0].(events.QuoteSubmitted)
	if !ev.HasConflict {
		t.Fatal("event should carry the conflict flag")
	}
}

func TestCreateSurvivesEmailFailure(t *testing.T) {
	fx := newFixture(t, 5)
	fx.sender.failAll = context.DeadlineExceeded
	svcID := fx.addService(t, "Portraits", 5000, 9000)

	resp, err := fx.svc.Create(context.Background(), createRequest(svcID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.ProcessingInfo.ClientEmailSent {
		t.Fatal("email failure must be reported in processing info")
	}
	if len(fx.repo.quotes) != 1 {
		t.Fatal("quote must persist despite the email failure")
	}
}

func strPtr(s string) *string { return &s }

func TestUpdateRejectsInvalidTransition(t *testing.T) {
	q := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	q.Status = domain.StatusAccepted
	fx := newFixture(t, 5, q)

	_, err := fx.svc.Update(context.Background(), q.ID, uuid.New(), transport.UpdateQuoteRequest{
		Status: strPtr("sent"),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestUpdateCancelRequiresReason(t *testing.T) {
	q := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	fx := newFixture(t, 5, q)

	_, err := fx.svc.Update(context.Background(), q.ID, uuid.New(), transport.UpdateQuoteRequest{
		Status: strPtr("cancelled"),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}

	resp, err := fx.svc.Update(context.Background(), q.ID, uuid.New(), transport.UpdateQuoteRequest{
		Status:             strPtr("cancelled"),
		CancellationReason: strPtr("client asked to cancel"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.Quote.Status != string(domain.StatusCancelled) {
		t.Fatalf("status = %s, want cancelled", resp.Quote.Status)
	}
	if resp.Quote.CancelledAt == nil {
		t.Fatal("cancelled_at should be stamped")
	}
	if resp.ProcessingInfo.EmailType != "cancellation" {
		t.Fatalf("email type = %s, want cancellation", resp.ProcessingInfo.EmailType)
	}
}

func TestUpdateSentStampsTimestampAndNotifies(t *testing.T) {
	q := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	fx := newFixture(t, 5, q)

	resp, err := fx.svc.Update(context.Background(), q.ID, uuid.New(), transport.UpdateQuoteRequest{
		Status:       strPtr("sent"),
		QuotedAmount: f(75000),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.Quote.QuoteSentAt == nil {
		t.Fatal("quote_sent_at should be stamped")
	}
	if !resp.ProcessingInfo.StatusChanged || resp.ProcessingInfo.NewStatus != "sent" {
		t.Fatalf("processing info = %+v", resp.ProcessingInfo)
	}
	if len(fx.sender.sent) != 1 || fx.sender.sent[0].kind != "quote_sent" {
		t.Fatalf("sent emails = %+v, want one quote_sent", fx.sender.sent)
	}
	if len(fx.bus.byName("quotes.quote.status_changed")) != 1 {
		t.Fatal("expected one QuoteStatusChanged event")
	}
}

func TestUpdateValidUntilStoresDateOnly(t *testing.T) {
	q := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	fx := newFixture(t, 5, q)

	until := monday.AddDate(0, 0, 14)
	_, err := fx.svc.Update(context.Background(), q.ID, uuid.New(), transport.UpdateQuoteRequest{
		ValidUntil: strPtr(until.Format("2006-01-02")),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	stored := fx.repo.quotes[0].ValidUntil
	if stored == nil || !stored.Equal(until) {
		t.Fatalf("valid_until = %v, want %v", stored, until)
	}
	if h, m, s := stored.Clock(); h != 0 || m != 0 || s != 0 {
		t.Fatalf("valid_until carries a time component: %v", stored)
	}

	_, err = fx.svc.Update(context.Background(), q.ID, uuid.New(), transport.UpdateQuoteRequest{
		ValidUntil: strPtr(""),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if fx.repo.quotes[0].ValidUntil != nil {
		t.Fatal("empty valid_until should clear the field")
	}
}

func TestUpdateRejectedThreadsReasonIntoEmail(t *testing.T) {
	q := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	fx := newFixture(t, 5, q)

	resp, err := fx.svc.Update(context.Background(), q.ID, uuid.New(), transport.UpdateQuoteRequest{
		Status:          strPtr("rejected"),
		RejectionReason: strPtr("fully booked for that weekend"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.ProcessingInfo.EmailType != "quote_rejected" {
		t.Fatalf("email type = %s, want quote_rejected", resp.ProcessingInfo.EmailType)
	}
	if len(fx.sender.sent) != 1 || fx.sender.sent[0].reason != "fully booked for that weekend" {
		t.Fatalf("sent emails = %+v, want the rejection reason threaded through", fx.sender.sent)
	}
}

func TestUpdateRejectedFallsBackToAdminNote(t *testing.T) {
	q := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	fx := newFixture(t, 5, q)

	_, err := fx.svc.Update(context.Background(), q.ID, uuid.New(), transport.UpdateQuoteRequest{
		Status:    strPtr("rejected"),
		AdminNote: strPtr("studio closed for renovations"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(fx.sender.sent) != 1 || fx.sender.sent[0].reason != "studio closed for renovations" {
		t.Fatalf("sent emails = %+v, want the admin note as fallback reason", fx.sender.sent)
	}
}

func TestUpdateRescheduleEmailWinsOverStatusEmail(t *testing.T) {
	q := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	fx := newFixture(t, 5, q)

	resp, err := fx.svc.Update(context.Background(), q.ID, uuid.New(), transport.UpdateQuoteRequest{
		EventDate:    strPtr(tuesday.Format("2006-01-02")),
		EventTime:    strPtr("11:00"),
		Status:       strPtr("sent"),
		IsReschedule: true,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.ProcessingInfo.EmailType != "reschedule" {
		t.Fatalf("email type = %s, want reschedule", resp.ProcessingInfo.EmailType)
	}
	if len(fx.sender.sent) != 1 || fx.sender.sent[0].kind != "quote_rescheduled" {
		t.Fatalf("sent emails = %+v, want only the reschedule email", fx.sender.sent)
	}
	// Both the move and the status change still publish their events.
	if len(fx.bus.byName("quotes.quote.rescheduled")) != 1 {
		t.Fatal("expected one QuoteRescheduled event")
	}
	if len(fx.bus.byName("quotes.quote.status_changed")) != 1 {
		t.Fatal("expected one QuoteStatusChanged event")
	}
}

func TestUpdateMoveIntoOccupiedSlotWarnsButApplies(t *testing.T) {
	other := pendingQuote(t, tuesday, "11:00", time.Now().Add(-2*time.Hour))
	q := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	fx := newFixture(t, 5, other, q)

	resp, err := fx.svc.Update(context.Background(), q.ID, uuid.New(), transport.UpdateQuoteRequest{
		EventDate: strPtr(tuesday.Format("2006-01-02")),
		EventTime: strPtr("11:00"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.ConflictInfo == nil {
		t.Fatal("expected a conflict warning")
	}
	if len(resp.ConflictInfo.ConflictingQuoteIDs) != 1 || resp.ConflictInfo.ConflictingQuoteIDs[0] != other.ID {
		t.Fatalf("conflicting ids = %v", resp.ConflictInfo.ConflictingQuoteIDs)
	}
	if resp.Quote.EventDate == nil || *resp.Quote.EventDate != tuesday.Format("2006-01-02") {
		t.Fatal("the move must still be applied")
	}
}

func TestGetByIDSelfHealsStaleConflictFlag(t *testing.T) {
	q := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	q.HasConflict = true // stale: no other quote occupies the slot
	fx := newFixture(t, 5, q)

	resp, err := fx.svc.GetByID(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if resp.HasConflict {
		t.Fatal("recomputed flag should be false")
	}
	if healed, ok := fx.repo.flagWrites[q.ID]; !ok || healed {
		t.Fatalf("flag write = %v/%v, want self-heal to false", healed, ok)
	}
}

func TestGetByIDAttachesAlternativesForLoser(t *testing.T) {
	winner := pendingQuote(t, monday, "14:00", time.Now().Add(-2*time.Hour))
	loser := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	fx := newFixture(t, 5, winner, loser)

	resp, err := fx.svc.GetByID(context.Background(), loser.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if resp.TimeConflict == nil {
		t.Fatal("expected conflict info")
	}
	if resp.TimeConflict.IsPriority {
		t.Fatal("later submission must not hold priority")
	}
	if resp.TimeConflict.VerifiedAlternatives == nil {
		t.Fatal("losing quote should get alternatives")
	}

	winnerResp, err := fx.svc.GetByID(context.Background(), winner.ID)
	if err != nil {
		t.Fatalf("GetByID winner: %v", err)
	}
	if winnerResp.TimeConflict == nil || !winnerResp.TimeConflict.IsPriority {
		t.Fatal("earliest submission holds priority")
	}
	if winnerResp.TimeConflict.VerifiedAlternatives != nil {
		t.Fatal("priority holder needs no alternatives")
	}
}

func TestBulkActionSkipsInvalidTransitions(t *testing.T) {
	pending := pendingQuote(t, monday, "09:00", time.Now().Add(-2*time.Hour))
	accepted := pendingQuote(t, monday, "11:00", time.Now().Add(-time.Hour))
	accepted.Status = domain.StatusAccepted
	fx := newFixture(t, 5, pending, accepted)

	resp, err := fx.svc.BulkAction(context.Background(), uuid.New(), transport.BulkActionRequest{
		Action:   "UPDATE_STATUS",
		QuoteIDs: []uuid.UUID{pending.ID, accepted.ID},
		Status:   "sent",
	})
	if err != nil {
		t.Fatalf("BulkAction: %v", err)
	}
	if resp.UpdatedCount != 1 {
		t.Fatalf("updated = %d, want 1", resp.UpdatedCount)
	}
	if len(resp.Skipped) != 1 || resp.Skipped[0].ID != accepted.ID {
		t.Fatalf("skipped = %+v", resp.Skipped)
	}
}

func TestBulkDelete(t *testing.T) {
	a := pendingQuote(t, monday, "09:00", time.Now().Add(-2*time.Hour))
	b := pendingQuote(t, monday, "11:00", time.Now().Add(-time.Hour))
	fx := newFixture(t, 5, a, b)

	resp, err := fx.svc.BulkAction(context.Background(), uuid.New(), transport.BulkActionRequest{
		Action:   "DELETE",
		QuoteIDs: []uuid.UUID{a.ID, b.ID},
	})
	if err != nil {
		t.Fatalf("BulkAction: %v", err)
	}
	if resp.DeletedCount != 2 || len(fx.repo.quotes) != 0 {
		t.Fatalf("deleted = %d, remaining = %d", resp.DeletedCount, len(fx.repo.quotes))
	}
}

func TestCleanupOldQuotes(t *testing.T) {
	stale := pendingQuote(t, monday, "09:00", time.Now().Add(-31*24*time.Hour))
	fresh := pendingQuote(t, monday, "11:00", time.Now().Add(-time.Hour))
	fx := newFixture(t, 5, stale, fresh)

	resp, err := fx.svc.Cleanup(context.Background(), uuid.New(), CleanupOldQuotes, "")
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if resp.DeletedCount != 1 || len(fx.repo.quotes) != 1 {
		t.Fatalf("deleted = %d, remaining = %d", resp.DeletedCount, len(fx.repo.quotes))
	}
	if fx.repo.quotes[0].ID != fresh.ID {
		t.Fatal("fresh quote must survive")
	}
}

func TestCleanupOvercrowdedDay(t *testing.T) {
	quotes := []domain.Quote{
		pendingQuote(t, monday, "09:00", time.Now().Add(-4*time.Hour)),
		pendingQuote(t, monday, "11:00", time.Now().Add(-3*time.Hour)),
		pendingQuote(t, monday, "13:00", time.Now().Add(-2*time.Hour)),
	}
	fx := newFixture(t, 2, quotes...)

	if _, err := fx.svc.Cleanup(context.Background(), uuid.New(), CleanupOvercrowdedDay, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("missing date: err = %v, want validation error", err)
	}

	resp, err := fx.svc.Cleanup(context.Background(), uuid.New(), CleanupOvercrowdedDay, monday.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if resp.DeletedCount != 1 || resp.KeptCount != 2 {
		t.Fatalf("deleted = %d, kept = %d", resp.DeletedCount, resp.KeptCount)
	}
	// The newest submission is the one trimmed.
	for _, q := range fx.repo.quotes {
		if q.ID == quotes[2].ID {
			t.Fatal("excess quote should be deleted")
		}
	}
}

func TestCleanupRejectsUnknownKind(t *testing.T) {
	fx := newFixture(t, 5)
	if _, err := fx.svc.Cleanup(context.Background(), uuid.New(), "everything", ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestAlternativeTimesRequiresSlot(t *testing.T) {
	q := pendingQuote(t, monday, "14:00", time.Now().Add(-time.Hour))
	q.EventDate = nil
	q.EventTime = nil
	fx := newFixture(t, 5, q)

	if _, err := fx.svc.AlternativeTimes(context.Background(), q.ID, 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestStatusesEnumeratesLifecycle(t *testing.T) {
	fx := newFixture(t, 5)
	resp := fx.svc.Statuses()
	if len(resp.Statuses) != len(domain.AllStatuses) {
		t.Fatalf("got %d statuses, want %d", len(resp.Statuses), len(domain.AllStatuses))
	}
	first := resp.Statuses[0]
	if first.Value != "pending" || first.Terminal || !first.Active {
		t.Fatalf("pending entry = %+v", first)
	}
}

//go:build unit

package commands

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"ticketing/internal/domain/booking"
	"ticketing/internal/domain/event"
	"ticketing/internal/domain/payment"
	paymentgw "ticketing/internal/gateway/payment"
	"ticketing/internal/infra"
	"ticketing/internal/infra/db"
	"ticketing/internal/notification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// stubPool は RunInTx を DB なしで通すための最小実装。
// フェイクリポジトリは渡された DBTX を見ないので、トランザクションは形だけでよい。
type stubPool struct{}

var _ db.Pool = stubPool{}

func (stubPool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (stubPool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (stubPool) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (stubPool) Begin(context.Context) (pgx.Tx, error) { return stubTx{}, nil }

type stubTx struct{ pgx.Tx }

func (stubTx) Commit(context.Context) error { return nil }

// RunInTx の defer 側を静かに通すため、クローズ済み扱いにする
func (stubTx) Rollback(context.Context) error { return pgx.ErrTxClosed }

// fakeEventRepo は条件付きデクリメントの契約（ガードを満たさなければ false）を
// そのままインメモリで再現する。
type fakeEventRepo struct {
	mu       sync.Mutex
	events   map[uuid.UUID]*event.Event
	restores int
}

func newFakeEventRepo(evs ...*event.Event) *fakeEventRepo {
	r := &fakeEventRepo{events: map[uuid.UUID]*event.Event{}}
	for _, ev := range evs {
		r.events[ev.ID()] = ev
	}
	return r
}

func (r *fakeEventRepo) FindByID(_ context.Context, _ db.DBTX, id uuid.UUID) (*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[id]
	if !ok {
		return nil, infra.WrapRepoErr("event not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return ev, nil
}

func (r *fakeEventRepo) ReserveCapacity(_ context.Context, _ db.DBTX, eventID uuid.UUID, quantity int32, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[eventID]
	if !ok {
		return false, nil
	}
	if ev.Status() != event.StatusActive || !now.Before(ev.StartDate()) || ev.Available() < quantity {
		return false, nil
	}
	r.events[eventID] = r.withAvailable(ev, ev.Available()-quantity)
	return true, nil
}

func (r *fakeEventRepo) RestoreCapacity(_ context.Context, _ db.DBTX, eventID uuid.UUID, quantity int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[eventID]
	if !ok {
		return infra.WrapRepoErr("event not found for capacity restore", nil, infra.KindNotFound)
	}
	r.events[eventID] = r.withAvailable(ev, ev.Available()+quantity)
	r.restores++
	return nil
}

func (r *fakeEventRepo) available(id uuid.UUID) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[id].Available()
}

func (r *fakeEventRepo) withAvailable(ev *event.Event, available int32) *event.Event {
	next, err := event.ReconstructEvent(
		ev.ID(), ev.Name(), ev.PriceCents(),
		ev.Capacity(), available,
		ev.StartDate(), ev.EndDate(),
		ev.Status(),
	)
	if err != nil {
		panic(err)
	}
	return next
}

// fakeBookingRepo はステータスをガードにした条件付き UPDATE の契約
// （遷移できなければ 0 行 = false）を再現する。読み出しはスナップショットを返す。
type fakeBookingRepo struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*booking.Booking
	byRef       map[string]uuid.UUID
	artifactSet int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{byID: map[uuid.UUID]*booking.Booking{}, byRef: map[string]uuid.UUID{}}
}

func (r *fakeBookingRepo) Create(_ context.Context, _ db.DBTX, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRef[b.BookingReference()]; ok {
		return infra.WrapRepoErr("booking reference already exists", nil, infra.KindDuplicateKey)
	}
	r.byID[b.ID()] = cloneBooking(b)
	r.byRef[b.BookingReference()] = b.ID()
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, _ db.DBTX, id uuid.UUID) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return cloneBooking(b), nil
}

func (r *fakeBookingRepo) FindByReference(_ context.Context, _ db.DBTX, ref string) (*booking.Booking, error) {
	r.mu.Lock()
	id, ok := r.byRef[ref]
	r.mu.Unlock()
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return r.FindByID(context.Background(), nil, id)
}

func (r *fakeBookingRepo) UpdateStatusConfirmed(_ context.Context, _ db.DBTX, id uuid.UUID, paymentRef string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok || !b.IsPending() {
		return false, nil
	}
	if err := b.Confirm(paymentRef, now); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeBookingRepo) UpdateStatusCancelled(_ context.Context, _ db.DBTX, id uuid.UUID, reason string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok || b.IsTerminal() {
		return false, nil
	}
	if err := b.Cancel(reason, now); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeBookingRepo) UpdateStatusCompleted(_ context.Context, _ db.DBTX, id uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok || !b.IsConfirmed() {
		return false, nil
	}
	if err := b.Complete(now); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeBookingRepo) SetTicketArtifact(_ context.Context, _ db.DBTX, id uuid.UUID, artifact string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return infra.WrapRepoErr("booking not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	b.AttachTicketArtifact(artifact, now)
	r.artifactSet++
	return nil
}

func (r *fakeBookingRepo) FindExpiredPendingIDs(_ context.Context, _ db.DBTX, cutoff time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, b := range r.byID {
		if b.IsPending() && b.CreatedAt().Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeBookingRepo) status(id uuid.UUID) booking.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].Status()
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	c, err := booking.ReconstructBooking(
		b.ID(), b.UserID(), b.EventID(),
		b.Quantity(), b.TotalAmountCents(),
		b.Status(), b.BookingReference(),
		b.PaymentReference(), b.TicketArtifact(), b.CancelReason(),
		b.CreatedAt(), b.UpdatedAt(),
	)
	if err != nil {
		panic(err)
	}
	return c
}

// fakePaymentRepo は参照ごとの条件付き終端化に加えて、SUCCESSFUL は予約ごとに
// 一行までという部分ユニークインデックスの挙動も再現する。
type fakePaymentRepo struct {
	mu    sync.Mutex
	byRef map[string]*payment.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byRef: map[string]*payment.Payment{}}
}

func (r *fakePaymentRepo) Create(_ context.Context, _ db.DBTX, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRef[p.Reference()]; ok {
		return infra.WrapRepoErr("payment reference already exists", nil, infra.KindDuplicateKey)
	}
	r.byRef[p.Reference()] = p
	return nil
}

func (r *fakePaymentRepo) FindByReference(_ context.Context, _ db.DBTX, ref string) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byRef[ref]
	if !ok {
		return nil, infra.WrapRepoErr("payment not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return clonePayment(p), nil
}

func (r *fakePaymentRepo) UpdateResolved(_ context.Context, _ db.DBTX, ref string, status payment.Status, paidAt *time.Time, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byRef[ref]
	if !ok || p.IsResolved() {
		return false, nil
	}
	if status == payment.StatusSuccessful {
		for _, other := range r.byRef {
			if other.Reference() != ref && other.BookingID() == p.BookingID() && other.Status() == payment.StatusSuccessful {
				return false, infra.WrapRepoErr("another payment already succeeded for booking", nil, infra.KindDuplicateKey)
			}
		}
		when := now
		if paidAt != nil {
			when = *paidAt
		}
		return true, p.MarkSuccessful(when)
	}
	return true, p.MarkFailed(now)
}

func (r *fakePaymentRepo) SetProviderReference(context.Context, db.DBTX, string, string, time.Time) error {
	return nil
}

func (r *fakePaymentRepo) FlagRefundRequired(_ context.Context, _ db.DBTX, ref string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byRef[ref]
	if !ok {
		return infra.WrapRepoErr("payment not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	p.FlagRefundRequired()
	return nil
}

func (r *fakePaymentRepo) get(ref string) *payment.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clonePayment(r.byRef[ref])
}

func (r *fakePaymentRepo) successfulCount(bookingID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.byRef {
		if p.BookingID() == bookingID && p.Status() == payment.StatusSuccessful {
			n++
		}
	}
	return n
}

func clonePayment(p *payment.Payment) *payment.Payment {
	c, err := payment.ReconstructPayment(
		p.ID(), p.BookingID(),
		p.AmountCents(),
		p.Status(),
		p.Provider(),
		p.Reference(),
		p.ProviderReference(),
		p.PaidAt(),
		p.RefundRequired(),
		p.CreatedAt(), p.UpdatedAt(),
	)
	if err != nil {
		panic(err)
	}
	return c
}

type fakeHolds struct {
	mu    sync.Mutex
	armed map[uuid.UUID]bool
}

func newFakeHolds() *fakeHolds {
	return &fakeHolds{armed: map[uuid.UUID]bool{}}
}

func (h *fakeHolds) Arm(_ context.Context, bookingID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armed[bookingID] = true
}

func (h *fakeHolds) Disarm(_ context.Context, bookingID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.armed, bookingID)
}

func (h *fakeHolds) isArmed(bookingID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.armed[bookingID]
}

type fakeNotifier struct {
	mu     sync.Mutex
	topics []notification.Topic
}

func (n *fakeNotifier) Notify(_ context.Context, topic notification.Topic, _ notification.Payload) notification.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topic)
	return notification.Result{Delivered: true}
}

func (n *fakeNotifier) count(topic notification.Topic) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, t := range n.topics {
		if t == topic {
			c++
		}
	}
	return c
}

// scriptedGateway はテストシナリオどおりの回答を返すプロバイダ。
type scriptedGateway struct {
	name      string
	verify    map[string]*paymentgw.VerificationResult
	verifyErr error
	event     *paymentgw.WebhookEvent
	parseErr  error
	sigErr    error
}

func (g *scriptedGateway) Name() string { return g.name }

func (g *scriptedGateway) Initialize(_ context.Context, req paymentgw.InitializeRequest) (*paymentgw.InitializeResult, error) {
	return &paymentgw.InitializeResult{
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		ProviderRef:      "prov_" + req.Reference,
	}, nil
}

func (g *scriptedGateway) Verify(_ context.Context, ref string) (*paymentgw.VerificationResult, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if vr, ok := g.verify[ref]; ok {
		return vr, nil
	}
	return &paymentgw.VerificationResult{Reference: ref, Status: paymentgw.StatusPending}, nil
}

func (g *scriptedGateway) VerifySignature(string, []byte) error { return g.sigErr }

func (g *scriptedGateway) ParseWebhook([]byte) (*paymentgw.WebhookEvent, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	return g.event, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pabuk-rewards/internal/model"
	"pabuk-rewards/internal/points"
	"pabuk-rewards/internal/repository"
)

// MaxTransactionAmount bounds the magnitude of a single ledger entry.
const MaxTransactionAmount int64 = 1_000_000_000

// History paging defaults.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// TransactionInput describes one ledger entry to record.
type TransactionInput struct {
	UserID         string
	Kind           model.TransactionKind
	Amount         int64
	Reason         string
	ContributionID *string
	Metadata       map[string]any
}

func (in TransactionInput) validate() error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, in.Kind)
	}
	if in.Amount == 0 || in.Amount > MaxTransactionAmount || in.Amount < -MaxTransactionAmount {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, in.Amount)
	}
	if in.Reason == "" {
		return ErrMissingReason
	}
	return nil
}

// Ledger is the only writer of user balances and levels. Every balance
// change is a PointTransaction written in the same database transaction as
// the balance update.
type Ledger struct {
	uow         *UnitOfWork
	recentLimit int
}

// NewLedger creates a Ledger. recentLimit is the number of transactions
// GetUserSummary returns.
func NewLedger(uow *UnitOfWork, recentLimit int) *Ledger {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	return &Ledger{uow: uow, recentLimit: recentLimit}
}

// record is createTransaction inside an open scope: lock the user row,
// derive the new balance and level, insert the entry, update the user.
func (l *Ledger) record(ctx context.Context, sc *Scope, in TransactionInput) (*model.PointTransaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	user, err := sc.Users.GetForUpdate(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	balance := user.Points + in.Amount
	level := points.LevelFor(balance)

	tx := &model.PointTransaction{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		Kind:           in.Kind,
		Amount:         in.Amount,
		Reason:         in.Reason,
		ContributionID: in.ContributionID,
		Metadata:       in.Metadata,
		CreatedAt:      sc.stamp(),
	}
	if err := sc.Transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	if err := sc.Users.SetBalance(ctx, in.UserID, balance, level, sc.Now); err != nil {
		return nil, err
	}

	sc.recorded(tx, balance)
	return tx, nil
}

// CreateTransaction records a ledger entry and moves the user's balance and
// level with it, atomically.
func (l *Ledger) CreateTransaction(ctx context.Context, in TransactionInput) (*model.PointTransaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var tx *model.PointTransaction
	err := l.uow.Do(ctx, in.UserID, func(sc *Scope) error {
		var err error
		tx, err = l.record(ctx, sc, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Award is the outcome of pricing a contribution.
type Award struct {
	Contribution *model.Contribution
	Result       points.Result
	Transaction  *model.PointTransaction
}

func contributionRef(c *model.Contribution) *string {
	id := c.ID
	return &id
}

// award prices a contribution for the first time and pays it.
func (l *Ledger) award(ctx context.Context, sc *Scope, c *model.Contribution) (*Award, error) {
	if c.CalculatedAt != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyAwarded, c.ID)
	}
	kind, ok := model.ContributionKind(c.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", points.ErrUnknownDataType, c.Type)
	}
	result, err := points.Calculate(points.InputFrom(c), points.OptionsFrom(c))
	if err != nil {
		return nil, err
	}

	award := &Award{Result: result}
	if result.Total != 0 {
		award.Transaction, err = l.record(ctx, sc, TransactionInput{
			UserID:         c.UserID,
			Kind:           kind,
			Amount:         result.Total,
			Reason:         fmt.Sprintf("Contribution: %s/%s (%s)", c.Type, c.Category, c.Status),
			ContributionID: contributionRef(c),
			Metadata: map[string]any{
				"status":           string(c.Status),
				"rating":           result.Rating,
				"firstInProvince":  c.FirstInProvince,
				"underrepresented": c.Underrepresented,
			},
		})
		if err != nil {
			return nil, err
		}
	}

	award.Contribution, err = sc.Contributions.ApplyChange(ctx, c.ID, c.Status, c.QualityRating, result.Total-c.PointsAwarded, sc.Now)
	if err != nil {
		return nil, err
	}
	return award, nil
}

// AwardContributionPoints prices a stored contribution that has not been
// priced yet, records the points and caches the value on the contribution.
func (l *Ledger) AwardContributionPoints(ctx context.Context, contributionID string) (*Award, error) {
	c, err := l.uow.Reader().Contributions.GetByID(ctx, contributionID)
	if err != nil {
		return nil, classify(err)
	}
	var award *Award
	err = l.uow.Do(ctx, c.UserID, func(sc *Scope) error {
		locked, err := sc.Contributions.GetForUpdate(ctx, contributionID)
		if err != nil {
			return err
		}
		award, err = l.award(ctx, sc, locked)
		return err
	})
	if err != nil {
		return nil, err
	}
	return award, nil
}

// Adjustment is the outcome of repricing a contribution.
type Adjustment struct {
	Contribution *model.Contribution
	Delta        int64
	Transaction  *model.PointTransaction
}

// deltaKind tags a repricing entry by its sign.
func deltaKind(delta int64) model.TransactionKind {
	if delta > 0 {
		return model.TxQualityMultiplier
	}
	return model.TxPenaltyLowQuality
}

// applyStatusChange reprices c for newStatus at its current rating.
// A zero delta writes no ledger entry but still stores the new status.
func (l *Ledger) applyStatusChange(ctx context.Context, sc *Scope, c *model.Contribution, newStatus model.Status) (*Adjustment, error) {
	oldStatus := c.Status
	delta, err := points.CalculateStatusChange(points.InputFrom(c), oldStatus, newStatus, points.OptionsFrom(c))
	if err != nil {
		return nil, err
	}

	adj := &Adjustment{Delta: delta}
	if delta != 0 {
		adj.Transaction, err = l.record(ctx, sc, TransactionInput{
			UserID:         c.UserID,
			Kind:           deltaKind(delta),
			Amount:         delta,
			Reason:         fmt.Sprintf("Status change: %s → %s", oldStatus, newStatus),
			ContributionID: contributionRef(c),
			Metadata: map[string]any{
				"oldStatus": string(oldStatus),
				"newStatus": string(newStatus),
			},
		})
		if err != nil {
			return nil, err
		}
	}

	adj.Contribution, err = sc.Contributions.ApplyChange(ctx, c.ID, newStatus, c.QualityRating, delta, sc.Now)
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// applyQualityChange reprices c for newRating at its current status.
func (l *Ledger) applyQualityChange(ctx context.Context, sc *Scope, c *model.Contribution, newRating int) (*Adjustment, error) {
	delta, err := points.CalculateQualityChange(points.InputFrom(c), c.QualityRating, newRating, points.OptionsFrom(c))
	if err != nil {
		return nil, err
	}

	oldRating := points.DefaultRating
	if c.QualityRating != nil {
		oldRating = *c.QualityRating
	}

	adj := &Adjustment{Delta: delta}
	if delta != 0 {
		adj.Transaction, err = l.record(ctx, sc, TransactionInput{
			UserID:         c.UserID,
			Kind:           deltaKind(delta),
			Amount:         delta,
			Reason:         fmt.Sprintf("Quality rating: %d → %d", oldRating, newRating),
			ContributionID: contributionRef(c),
			Metadata: map[string]any{
				"oldRating": oldRating,
				"newRating": newRating,
				"status":    string(c.Status),
			},
		})
		if err != nil {
			return nil, err
		}
	}

	rating := newRating
	adj.Contribution, err = sc.Contributions.ApplyChange(ctx, c.ID, c.Status, &rating, delta, sc.Now)
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// UpdateStatusChange reprices a contribution whose status moved from
// oldStatus to newStatus. oldStatus must match the stored status.
func (l *Ledger) UpdateStatusChange(ctx context.Context, contributionID string, oldStatus, newStatus model.Status) (*Adjustment, error) {
	if !oldStatus.Valid() || !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q → %q", points.ErrUnknownStatus, oldStatus, newStatus)
	}
	c, err := l.uow.Reader().Contributions.GetByID(ctx, contributionID)
	if err != nil {
		return nil, classify(err)
	}
	var adj *Adjustment
	err = l.uow.Do(ctx, c.UserID, func(sc *Scope) error {
		locked, err := sc.Contributions.GetForUpdate(ctx, contributionID)
		if err != nil {
			return err
		}
		if locked.Status != oldStatus {
			return fmt.Errorf("%w: stored %s, caller saw %s", ErrStaleStatus, locked.Status, oldStatus)
		}
		adj, err = l.applyStatusChange(ctx, sc, locked, newStatus)
		return err
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// UpdateQualityChange reprices a contribution re-rated from oldRating to
// newRating. oldRating must match the stored rating; nil means unrated.
func (l *Ledger) UpdateQualityChange(ctx context.Context, contributionID string, oldRating *int, newRating int) (*Adjustment, error) {
	if newRating < points.MinRating || newRating > points.MaxRating {
		return nil, fmt.Errorf("%w: got %d", points.ErrInvalidRating, newRating)
	}
	c, err := l.uow.Reader().Contributions.GetByID(ctx, contributionID)
	if err != nil {
		return nil, classify(err)
	}
	var adj *Adjustment
	err = l.uow.Do(ctx, c.UserID, func(sc *Scope) error {
		locked, err := sc.Contributions.GetForUpdate(ctx, contributionID)
		if err != nil {
			return err
		}
		if !sameRating(locked.QualityRating, oldRating) {
			return ErrStaleRating
		}
		adj, err = l.applyQualityChange(ctx, sc, locked, newRating)
		return err
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

func sameRating(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ApplyPenalty records a penalty. Positive amounts are negated; a zero
// amount uses the kind's default magnitude.
func (l *Ledger) ApplyPenalty(ctx context.Context, userID string, kind model.TransactionKind, amount int64, reason string, contributionID *string) (*model.PointTransaction, error) {
	if !kind.IsPenalty() {
		return nil, fmt.Errorf("%w: %q", ErrNotPenalty, kind)
	}
	if amount == 0 {
		amount = points.PenaltyDefaults[kind]
	}
	if amount > 0 {
		amount = -amount
	}
	return l.CreateTransaction(ctx, TransactionInput{
		UserID:         userID,
		Kind:           kind,
		Amount:         amount,
		Reason:         reason,
		ContributionID: contributionID,
	})
}

// AdminAdjust records a signed manual adjustment attributed to adminID.
func (l *Ledger) AdminAdjust(ctx context.Context, userID string, amount int64, reason, adminID string) (*model.PointTransaction, error) {
	if adminID == "" {
		return nil, fmt.Errorf("%w: admin id is required", ErrInvalidInput)
	}
	if reason == "" {
		return nil, ErrMissingReason
	}
	now := l.uow.Now()
	return l.CreateTransaction(ctx, TransactionInput{
		UserID: userID,
		Kind:   model.TxAdminAdjustment,
		Amount: amount,
		Reason: fmt.Sprintf("[Admin: %s] %s", adminID, reason),
		Metadata: map[string]any{
			"adminId":    adminID,
			"adjustedAt": now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
	})
}

// Summary is a read-only view of a user's points.
type Summary struct {
	UserID    string                          `json:"userId"`
	Balance   int64                           `json:"balance"`
	Level     string                          `json:"level"`
	Rank      int64                           `json:"rank"`
	Streak    int                             `json:"streak"`
	Approved  int                             `json:"approvedContributions"`
	Provinces int                             `json:"provincesCovered"`
	Recent    []*model.PointTransaction       `json:"recentTransactions"`
	Breakdown map[model.KindGroup]int64       `json:"breakdown"`
	ByKind    map[model.TransactionKind]int64 `json:"byKind"`
}

// GroupTotals folds per-kind sums into the four summary groups.
func GroupTotals(byKind map[model.TransactionKind]int64) map[model.KindGroup]int64 {
	groups := map[model.KindGroup]int64{
		model.GroupContributions: 0,
		model.GroupBonuses:       0,
		model.GroupMilestones:    0,
		model.GroupPenalties:     0,
	}
	for kind, total := range byKind {
		groups[kind.Group()] += total
	}
	return groups
}

// GetUserSummary returns balance, level, rank, recent transactions and the
// grouped breakdown of a user. It does not write.
func (l *Ledger) GetUserSummary(ctx context.Context, userID string) (*Summary, error) {
	store := l.uow.Reader()
	user, err := store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}

	var (
		recent []*model.PointTransaction
		byKind map[model.TransactionKind]int64
		above  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = store.Transactions.ListByUser(gctx, userID, repository.HistoryFilter{Limit: l.recentLimit})
		return err
	})
	g.Go(func() error {
		var err error
		byKind, err = store.Transactions.SumByKind(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		above, err = store.Users.CountWithMorePoints(gctx, user.Points)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, classify(err)
	}

	return &Summary{
		UserID:    user.ID,
		Balance:   user.Points,
		Level:     user.Level,
		Rank:      above + 1,
		Streak:    user.Streak,
		Approved:  user.ApprovedContributions,
		Provinces: user.ProvincesCovered,
		Recent:    recent,
		Breakdown: GroupTotals(byKind),
		ByKind:    byKind,
	}, nil
}

// HistoryOptions pages and filters GetHistory.
type HistoryOptions struct {
	Limit  int
	Offset int
	Kind   model.TransactionKind
}

// HistoryPage is one page of a user's ledger.
type HistoryPage struct {
	Transactions []*model.PointTransaction `json:"transactions"`
	Total        int64                     `json:"total"`
	Limit        int                       `json:"limit"`
	Offset       int                       `json:"offset"`
	HasMore      bool                      `json:"hasMore"`
}

// GetHistory returns a page of a user's transactions, newest first.
func (l *Ledger) GetHistory(ctx context.Context, userID string, opts HistoryOptions) (*HistoryPage, error) {
	if opts.Kind != "" && !opts.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidInput)
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultHistoryLimit
	}
	if opts.Limit > MaxHistoryLimit {
		opts.Limit = MaxHistoryLimit
	}

	store := l.uow.Reader()
	if _, err := store.Users.GetByID(ctx, userID); err != nil {
		return nil, classify(err)
	}

	page := &HistoryPage{Limit: opts.Limit, Offset: opts.Offset}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page.Transactions, err = store.Transactions.ListByUser(gctx, userID, repository.HistoryFilter{
			Kind: opts.Kind, Limit: opts.Limit, Offset: opts.Offset,
		})
		return err
	})
	g.Go(func() error {
		var err error
		page.Total, err = store.Transactions.CountByUser(gctx, userID, opts.Kind)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, classify(err)
	}

	page.HasMore = int64(opts.Offset+len(page.Transactions)) < page.Total
	return page, nil
}

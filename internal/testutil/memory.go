package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"qrwatcher/internal/domain"
)

// MemoryStore is an in-memory bot, user and link directory.
// It mirrors the postgres repositories including version checks on user state.
type MemoryStore struct {
	mu    sync.Mutex
	seq   int
	bots  map[string]*memBot
	users map[int64]*domain.User
	links map[link]int

	// UpdateStateErr, when set, is returned by every UpdateState call
	UpdateStateErr error
	// ConflictsLeft forces that many UpdateState calls to fail with a version conflict
	ConflictsLeft int
	// UpdateCalls counts UpdateState calls
	UpdateCalls int
}

type memBot struct {
	bot domain.Bot
	seq int
}

type link struct {
	user int64
	bot  string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bots:  make(map[string]*memBot),
		users: make(map[int64]*domain.User),
		links: make(map[link]int),
	}
}

// Bots returns the bot directory view
func (s *MemoryStore) Bots() *MemoryBots { return &MemoryBots{s} }

// Users returns the user directory view
func (s *MemoryStore) Users() *MemoryUsers { return &MemoryUsers{s} }

// Links returns the link graph view
func (s *MemoryStore) Links() *MemoryLinks { return &MemoryLinks{s} }

// AddBot stores a copy of bot
func (s *MemoryStore) AddBot(bot *domain.Bot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.bots[bot.ID] = &memBot{bot: copyBot(*bot), seq: s.seq}
}

// AddUser stores a copy of user
func (s *MemoryStore) AddUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	u.State = user.State.Clone()
	s.users[user.TgID] = &u
}

// AddLink links a user to a bot without checks
func (s *MemoryStore) AddLink(userID int64, botID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.links[link{userID, botID}] = s.seq
}

// Bot returns a copy of the stored bot, or nil
func (s *MemoryStore) Bot(id string) *domain.Bot {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return nil
	}
	c := copyBot(b.bot)
	return &c
}

// State returns a copy of the stored user state
func (s *MemoryStore) State(tgID int64) domain.UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[tgID]
	if !ok {
		return domain.UserState{}
	}
	return u.State.Clone()
}

// MemoryBots implements repository.BotRepository
type MemoryBots struct{ s *MemoryStore }

func (r *MemoryBots) Create(ctx context.Context, id, name, description string) (*domain.Bot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bots[id]; ok {
		return nil, domain.ErrDuplicateBot
	}
	r.s.seq++
	b := domain.Bot{ID: id, Name: name, Description: description, CreatedAt: time.Now()}
	r.s.bots[id] = &memBot{bot: b, seq: r.s.seq}
	return &b, nil
}

func (r *MemoryBots) Get(ctx context.Context, id string) (*domain.Bot, error) {
	return r.s.Bot(id), nil
}

func (r *MemoryBots) SetQR(ctx context.Context, id, qr string) (bool, error) {
	return r.update(id, func(b *domain.Bot) { b.CurrentQR = &qr })
}

func (r *MemoryBots) SetAuthed(ctx context.Context, id string, authed bool) (bool, error) {
	return r.update(id, func(b *domain.Bot) { b.Authed = authed })
}

func (r *MemoryBots) ClearQR(ctx context.Context, id string) (bool, error) {
	return r.update(id, func(b *domain.Bot) { b.CurrentQR = nil })
}

func (r *MemoryBots) ListUnlinked(ctx context.Context) ([]domain.Bot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	linked := make(map[string]bool)
	for l := range r.s.links {
		linked[l.bot] = true
	}
	return r.collect(func(b *domain.Bot) bool { return !linked[b.ID] }), nil
}

func (r *MemoryBots) ListAuthed(ctx context.Context) ([]domain.Bot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.collect(func(b *domain.Bot) bool { return b.Authed }), nil
}

func (r *MemoryBots) update(id string, fn func(b *domain.Bot)) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bots[id]
	if !ok {
		return false, nil
	}
	fn(&b.bot)
	return true, nil
}

// collect must be called with the store lock held
func (r *MemoryBots) collect(keep func(b *domain.Bot) bool) []domain.Bot {
	var list []*memBot
	for _, b := range r.s.bots {
		if keep(&b.bot) {
			list = append(list, b)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	bots := make([]domain.Bot, 0, len(list))
	for _, b := range list {
		bots = append(bots, copyBot(b.bot))
	}
	return bots
}

// MemoryUsers implements repository.UserRepository
type MemoryUsers struct{ s *MemoryStore }

func (r *MemoryUsers) Create(ctx context.Context, tgID int64, state domain.UserState) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[tgID]; ok {
		return false, nil
	}
	r.s.users[tgID] = &domain.User{TgID: tgID, State: state.Clone(), CreatedAt: time.Now()}
	return true, nil
}

func (r *MemoryUsers) GetOrCreate(ctx context.Context, tgID int64) (*domain.User, error) {
	if _, err := r.Create(ctx, tgID, domain.NewUserState()); err != nil {
		return nil, err
	}
	return r.GetByTgID(ctx, tgID)
}

func (r *MemoryUsers) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[tgID]
	if !ok {
		return nil, nil
	}
	c := copyUser(u)
	return &c, nil
}

func (r *MemoryUsers) UpdateState(ctx context.Context, tgID int64, state domain.UserState, version int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.UpdateCalls++
	if r.s.UpdateStateErr != nil {
		return r.s.UpdateStateErr
	}
	u, ok := r.s.users[tgID]
	if !ok {
		return domain.ErrVersionConflict
	}
	if r.s.ConflictsLeft > 0 {
		r.s.ConflictsLeft--
		u.Version++
		return domain.ErrVersionConflict
	}
	if u.Version != version {
		return domain.ErrVersionConflict
	}
	u.State = state.Clone()
	u.Version++
	return nil
}

func (r *MemoryUsers) ListLinkedTo(ctx context.Context, botID string) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var users []domain.User
	for l := range r.s.links {
		if l.bot != botID {
			continue
		}
		if u, ok := r.s.users[l.user]; ok {
			users = append(users, copyUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].TgID < users[j].TgID })
	return users, nil
}

func (r *MemoryUsers) ListBotsOf(ctx context.Context, tgID int64) ([]domain.Bot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type linked struct {
		bot domain.Bot
		seq int
	}
	var list []linked
	for l, seq := range r.s.links {
		if l.user != tgID {
			continue
		}
		if b, ok := r.s.bots[l.bot]; ok {
			list = append(list, linked{copyBot(b.bot), seq})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	bots := make([]domain.Bot, 0, len(list))
	for _, l := range list {
		bots = append(bots, l.bot)
	}
	return bots, nil
}

// MemoryLinks implements repository.LinkRepository
type MemoryLinks struct{ s *MemoryStore }

func (r *MemoryLinks) Link(ctx context.Context, userID int64, botID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return false, nil
	}
	if _, ok := r.s.bots[botID]; !ok {
		return false, nil
	}
	l := link{userID, botID}
	if _, ok := r.s.links[l]; ok {
		return false, nil
	}
	r.s.seq++
	r.s.links[l] = r.s.seq
	return true, nil
}

func (r *MemoryLinks) Unlink(ctx context.Context, userID int64, botID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := link{userID, botID}
	if _, ok := r.s.links[l]; !ok {
		return false, nil
	}
	delete(r.s.links, l)
	return true, nil
}

func copyBot(b domain.Bot) domain.Bot {
	if b.CurrentQR != nil {
		qr := *b.CurrentQR
		b.CurrentQR = &qr
	}
	return b
}

func copyUser(u *domain.User) domain.User {
	c := *u
	c.State = u.State.Clone()
	return c
}

package userrepofake

import (
	"strings"
	"sync"

	"github.com/leadcrm/go-crm-auth/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	byEmail map[string]*users.User
	byID    map[string]*users.User
	lock    sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		byEmail: make(map[string]*users.User),
		byID:    make(map[string]*users.User),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	ur.byEmail[strings.ToLower(user.Email)] = user
	ur.byID[user.ID] = user
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

// Delete removes a user, used by tests exercising the deleted-user race on
// refresh.
func (ur *FakeUserRepo) Delete(id string) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user, ok := ur.byID[id]; ok {
		delete(ur.byEmail, strings.ToLower(user.Email))
		delete(ur.byID, id)
	}
}

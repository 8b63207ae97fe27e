package repositories

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
)

// UserRepository persists accounts under "user:email:{email}" with a
// secondary pointer "user:id:{id}" for id lookups.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

// CreateUser persists the user and returns it with a fresh id. The email
// uniqueness check and the write share one transaction.
func (r UserRepository) CreateUser(email, name, passwordHash string) (domain.User, error) {
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return domain.User{}, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte("user:email:" + email)
		if _, err := txn.Get(emailKey); err == nil {
			return apperrors.ErrUserAlreadyExists
		}
		if err := txn.Set(emailKey, data); err != nil {
			return err
		}
		return txn.Set([]byte("user:id:"+user.ID), []byte(email))
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:email:" + email))
		if err != nil {
			return mapKeyErr(err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	return user, err
}

func (r UserRepository) GetUserByID(id string) (domain.User, error) {
	var email string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:id:" + id))
		if err != nil {
			return mapKeyErr(err)
		}
		return item.Value(func(val []byte) error {
			email = string(val)
			return nil
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return r.GetUserByEmail(email)
}

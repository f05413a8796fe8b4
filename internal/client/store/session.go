package store

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/dbx"
)

const (
	keyToken  = "token"
	keyUserID = "user_id"
	keyRole   = "role"
	keyEmail  = "email"
	keyName   = "name"
)

// Session is the signed-in identity persisted between runs.
type Session struct {
	Token  string
	UserID string
	Role   string
	Email  string
	Name   string
}

func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	return wrap(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m := s.metadata(tx)
		for k, v := range map[string]string{
			keyToken:  sess.Token,
			keyUserID: sess.UserID,
			keyRole:   sess.Role,
			keyEmail:  sess.Email,
			keyName:   sess.Name,
		} {
			if err := m.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	}))
}

// LoadSession returns nil when nobody is signed in.
func (s *Store) LoadSession(ctx context.Context) (*Session, error) {
	all, err := s.metadata(s.db).List(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	if all[keyToken] == "" {
		return nil, nil
	}
	return &Session{
		Token:  all[keyToken],
		UserID: all[keyUserID],
		Role:   all[keyRole],
		Email:  all[keyEmail],
		Name:   all[keyName],
	}, nil
}

// ClearSession forgets the credential. Local data is kept.
func (s *Store) ClearSession(ctx context.Context) error {
	return wrap(s.metadata(s.db).Delete(ctx, keyToken, keyUserID, keyRole, keyEmail, keyName))
}

package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"repurposer/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountCols = []string{"id", "user_id", "platform", "platform_user_id", "platform_username", "display_name", "profile_url", "avatar_url",
	"access_token", "refresh_token", "token_expires_at", "is_active", "last_used_at", "created_at", "updated_at"}

func TestSocialAccountRepository_FirstActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	exp := now.Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "acme".social_accounts WHERE user_id=$1 AND platform=$2 AND is_active=TRUE ORDER BY created_at ASC LIMIT 1`)).
		WithArgs("u1", "twitter").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(3, "u1", "twitter", "99", "gopher", "Gopher", nil, nil, "at", "rt", exp, true, nil, now, now))

	acc, err := NewSocialAccountRepository(db).FirstActive(context.Background(), acme, "u1", model.PlatformTwitter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), acc.ID)
	assert.Equal(t, "gopher", acc.PlatformUsername)
	assert.Equal(t, "", acc.ProfileURL)
	assert.Equal(t, "rt", acc.RefreshToken)
	require.NotNil(t, acc.TokenExpiresAt)
	assert.Nil(t, acc.LastUsedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialAccountRepository_FirstActive_None(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "acme".social_accounts WHERE user_id=$1`)).
		WithArgs("u1", "youtube").
		WillReturnRows(sqlmock.NewRows(accountCols))

	_, err = NewSocialAccountRepository(db).FirstActive(context.Background(), acme, "u1", model.PlatformYouTube)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSocialAccountRepository_UpdateTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	exp := time.Date(2026, 10, 12, 11, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "acme".social_accounts SET access_token=$1, refresh_token=$2, token_expires_at=$3, updated_at=$4 WHERE id=$5`)).
		WithArgs("new-at", "new-rt", exp, sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewSocialAccountRepository(db).UpdateTokens(context.Background(), acme, 3, model.TokenUpdate{AccessToken: "new-at", RefreshToken: "new-rt", ExpiresAt: &exp})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialAccountRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id, platform, platform_user_id) DO UPDATE SET`)).
		WithArgs("u1", "linkedin", "abc", "", "Ada", "", "", "at", "", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	acc := &model.SocialAccount{UserID: "u1", Platform: model.PlatformLinkedIn, PlatformUserID: "abc", DisplayName: "Ada", AccessToken: "at"}
	require.NoError(t, NewSocialAccountRepository(db).Upsert(context.Background(), acme, acc))
	assert.Equal(t, int64(12), acc.ID)
	assert.True(t, acc.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialAccountRepository_Deactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`SET is_active=FALSE, updated_at=$1 WHERE user_id=$2 AND platform=$3 AND is_active=TRUE`)).
		WithArgs(sqlmock.AnyArg(), "u1", "facebook").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewSocialAccountRepository(db).Deactivate(context.Background(), acme, "u1", model.PlatformFacebook)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

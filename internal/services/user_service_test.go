package services

import (
	"errors"
	"testing"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	budgetSvc := NewBudgetService(db)
	svc := NewUserService(db, budgetSvc)

	t.Run("creates user and provisions free budget", func(t *testing.T) {
		user, err := svc.CreateUser("alice", "alice@example.com", "password123")
		testutil.AssertNoError(t, err)
		if user.ID == 0 {
			t.Error("expected user ID to be set")
		}
		if user.Password == "password123" {
			t.Error("expected password to be hashed")
		}
		if !user.IsActive {
			t.Error("expected user to be active")
		}

		var budget models.Budget
		err = db.Where("user_id = ? AND title = ?", user.ID, models.FreeBudgetTitle).First(&budget).Error
		testutil.AssertNoError(t, err)
		if budget.TotalAmount != models.FreeBudgetAmount {
			t.Errorf("expected free budget amount %d, got %d", models.FreeBudgetAmount, budget.TotalAmount)
		}
	})

	t.Run("normalizes email to lowercase", func(t *testing.T) {
		user, err := svc.CreateUser("bob", "Bob@Example.COM", "password123")
		testutil.AssertNoError(t, err)
		if user.Email != "bob@example.com" {
			t.Errorf("expected lowercase email, got %s", user.Email)
		}
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		_, err := svc.CreateUser("alice", "alice2@example.com", "password123")
		testutil.AssertAppError(t, err, "DUPLICATE_USERNAME")
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		_, err := svc.CreateUser("alice2", "alice@example.com", "password123")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("rejects empty fields", func(t *testing.T) {
		_, err := svc.CreateUser("", "x@example.com", "password123")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

// A registration racing past the duplicate pre-checks loses at the unique
// index; the index error must still surface as the duplicate sentinel, not
// as an internal error.
func TestDuplicateUserError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want *apperrors.AppError
	}{
		{"sqlite username violation", errors.New("UNIQUE constraint failed: users.username"), apperrors.ErrDuplicateUsername},
		{"sqlite email violation", errors.New("UNIQUE constraint failed: users.email"), apperrors.ErrDuplicateEmail},
		{"postgres username violation", errors.New(`duplicate key value violates unique constraint "idx_users_username"`), apperrors.ErrDuplicateUsername},
		{"postgres email violation", errors.New(`duplicate key value violates unique constraint "idx_users_email"`), apperrors.ErrDuplicateEmail},
		{"unrelated error", errors.New("connection reset by peer"), nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := duplicateUserError(tc.err); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestAttemptLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	budgetSvc := NewBudgetService(db)
	svc := NewUserService(db, budgetSvc)

	_, err := svc.CreateUser("carol", "carol@example.com", "correct-horse")
	testutil.AssertNoError(t, err)

	t.Run("succeeds with valid credentials", func(t *testing.T) {
		user, err := svc.AttemptLogin("carol", "correct-horse")
		testutil.AssertNoError(t, err)
		if user.LastLoginAt == nil {
			t.Error("expected last login timestamp to be recorded")
		}
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		_, err := svc.AttemptLogin("carol", "wrong")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("rejects unknown username with the same error", func(t *testing.T) {
		_, err := svc.AttemptLogin("nobody", "whatever")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("locks the account after repeated failures", func(t *testing.T) {
		_, err := svc.CreateUser("dave", "dave@example.com", "correct-horse")
		testutil.AssertNoError(t, err)

		for i := 0; i < maxFailedLoginAttempts; i++ {
			_, err := svc.AttemptLogin("dave", "wrong")
			testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
		}

		_, err = svc.AttemptLogin("dave", "correct-horse")
		testutil.AssertAppError(t, err, "ACCOUNT_LOCKED")
	})

	t.Run("success resets the failure counter", func(t *testing.T) {
		_, err := svc.CreateUser("erin", "erin@example.com", "correct-horse")
		testutil.AssertNoError(t, err)

		for i := 0; i < maxFailedLoginAttempts-1; i++ {
			_, _ = svc.AttemptLogin("erin", "wrong")
		}
		_, err = svc.AttemptLogin("erin", "correct-horse")
		testutil.AssertNoError(t, err)

		user, err := svc.GetUserByUsername("erin")
		testutil.AssertNoError(t, err)
		if user.FailedLoginAttempts != 0 {
			t.Errorf("expected failure counter reset, got %d", user.FailedLoginAttempts)
		}
	})
}

func TestRefreshTokenHash(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	budgetSvc := NewBudgetService(db)
	svc := NewUserService(db, budgetSvc)

	user, err := svc.CreateUser("frank", "frank@example.com", "password123")
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "abc123hash"))

	hash, err := svc.GetRefreshTokenHash(user.ID)
	testutil.AssertNoError(t, err)
	if hash != "abc123hash" {
		t.Errorf("expected stored hash, got %s", hash)
	}
}

func TestGetUserByUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	budgetSvc := NewBudgetService(db)
	svc := NewUserService(db, budgetSvc)

	user, err := svc.CreateUser("grace", "grace@example.com", "password123")
	testutil.AssertNoError(t, err)

	t.Run("finds active user", func(t *testing.T) {
		found, err := svc.GetUserByUsername("grace")
		testutil.AssertNoError(t, err)
		if found.ID != user.ID {
			t.Errorf("expected user %d, got %d", user.ID, found.ID)
		}
	})

	t.Run("hides deactivated user", func(t *testing.T) {
		testutil.AssertNoError(t, db.Model(user).Update("is_active", false).Error)
		_, err := svc.GetUserByUsername("grace")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

package invitations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketadmin/internal/activity"
	"marketadmin/internal/apperr"
	"marketadmin/internal/config"
	"marketadmin/internal/constants"
	"marketadmin/internal/docstore"
	"marketadmin/internal/logger"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
)

type fakeBlobs struct {
	names []string
	err   error
}

func (f *fakeBlobs) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	return "https://admin.example.com/api/media/" + name, nil
}

type fakeMessenger struct {
	mu     sync.Mutex
	texts  []string
	photos []string
}

func (f *fakeMessenger) SendText(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendPhoto(chatID int64, name string, png []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, caption)
	return nil
}

var (
	superAdmin = session.Admin{ID: "root", Name: "Root", Role: models.RoleSuperAdmin}
	owner      = session.Admin{ID: "own", Name: "Mehmet", Role: models.RoleBusinessOwner, BusinessID: "b1"}
)

type fixture struct {
	svc   *Service
	store *docstore.Memory
	blobs *fakeBlobs
	msg   *fakeMessenger
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := docstore.NewMemory()
	_, err := store.Create(context.Background(), constants.COLLECTION_BUSINESSES, docstore.Document{"id": "b1", "name": "Kasap Ali"})
	require.NoError(t, err)

	f := &fixture{store: store, blobs: &fakeBlobs{}, msg: &fakeMessenger{}, now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	log := logger.Discard()
	cfg := &config.Config{ConsoleURL: "https://panel.example.com/", OperatorChatID: 99}
	f.svc = NewService(store, f.blobs, f.msg, activity.New(store, log), cfg, log)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func validForm() models.RegistrationForm {
	return models.RegistrationForm{FirstName: "Elif", LastName: "Yıldız", Email: "Elif@Example.com", Phone: "0151 2345678"}
}

func TestCreateInvitation(t *testing.T) {
	f := newFixture(t)
	inv, err := f.svc.Create(context.Background(), owner, CreateInput{Role: models.RoleStaff, Phone: "+49 151 2345678"})
	require.NoError(t, err)

	assert.Equal(t, inv.Token, inv.ID)
	assert.Equal(t, models.InvitationPending, inv.Status)
	assert.Equal(t, "b1", inv.BusinessID)
	assert.Equal(t, "Kasap Ali", inv.BusinessName)
	assert.Equal(t, "+491512345678", inv.Phone)
	assert.Equal(t, f.now.Add(48*time.Hour), inv.ExpiresAt)
	assert.Equal(t, "https://panel.example.com/register/"+inv.Token, inv.Link)
	assert.Equal(t, []string{"invitations/" + inv.Token + ".png"}, f.blobs.names)
	assert.Contains(t, inv.QRCodeURL, inv.Token)
	require.Len(t, f.msg.photos, 1)
	assert.Contains(t, f.msg.photos[0], "Kasap Ali")

	stored, err := f.svc.GetByToken(context.Background(), inv.Token)
	require.NoError(t, err)
	assert.Equal(t, inv.Link, stored.Link)

	logs, err := activity.New(f.store, logger.Discard()).List(context.Background(), activity.Filter{Category: models.CategoryInvitation})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "invitation.create", logs[0].Action)
}

func TestCreateRoleRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, owner, CreateInput{Role: models.RoleBusinessOwner})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = f.svc.Create(ctx, owner, CreateInput{Role: models.RoleAdmin})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	staff := session.Admin{ID: "s", Role: models.RoleStaff, BusinessID: "b1"}
	_, err = f.svc.Create(ctx, staff, CreateInput{Role: models.RoleDriver})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = f.svc.Create(ctx, superAdmin, CreateInput{Role: models.RoleStaff})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.Create(ctx, superAdmin, CreateInput{Role: models.RoleStaff, BusinessID: "missing"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.Create(ctx, superAdmin, CreateInput{Role: "emperor"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// Владелец не может пригласить в чужой бизнес: бизнес берется из сессии.
	inv, err := f.svc.Create(ctx, owner, CreateInput{Role: models.RoleDriver, BusinessID: "b2"})
	require.NoError(t, err)
	assert.Equal(t, "b1", inv.BusinessID)

	admin, err := f.svc.Create(ctx, superAdmin, CreateInput{Role: models.RoleAdmin, Email: "New@Example.com"})
	require.NoError(t, err)
	assert.Empty(t, admin.BusinessID)
	assert.Equal(t, "new@example.com", admin.Email)
}

func TestCreateSurvivesBlobFailure(t *testing.T) {
	f := newFixture(t)
	f.blobs.err = errors.New("disk full")
	inv, err := f.svc.Create(context.Background(), superAdmin, CreateInput{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, inv.QRCodeURL)
}

func TestRegisterAndDecide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, owner, CreateInput{Role: models.RoleStaff})
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, superAdmin, inv.ID, true)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))

	registered, err := f.svc.Register(ctx, inv.Token, validForm())
	require.NoError(t, err)
	assert.Equal(t, models.InvitationRegistered, registered.Status)
	assert.Equal(t, "+491512345678", registered.Registration.Phone)
	assert.Equal(t, "elif@example.com", registered.Registration.Email)
	require.Len(t, f.msg.texts, 1)
	assert.Contains(t, f.msg.texts[0], "Elif")

	_, err = f.svc.Register(ctx, inv.Token, validForm())
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))

	other := session.Admin{ID: "x", Role: models.RoleBusinessOwner, BusinessID: "b9"}
	_, err = f.svc.Decide(ctx, other, inv.ID, true)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	approved, err := f.svc.Decide(ctx, owner, inv.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationApproved, approved.Status)
	assert.Equal(t, "own", approved.DecidedBy)

	_, err = f.svc.Decide(ctx, superAdmin, inv.ID, false)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))

	list, err := f.svc.List(ctx, superAdmin, models.InvitationApproved)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inv.ID, list[0].ID)
}

func TestRegisterValidationAndExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, superAdmin, CreateInput{Role: models.RoleAdmin})
	require.NoError(t, err)

	bad := validForm()
	bad.Email = "nope"
	_, err = f.svc.Register(ctx, inv.Token, bad)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "email")

	f.now = f.now.Add(constants.InvitationTTL)
	_, err = f.svc.GetByToken(ctx, inv.Token)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = f.svc.Register(ctx, inv.Token, validForm())
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.GetByToken(ctx, "unknown")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListScopesBusiness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, superAdmin, CreateInput{Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, owner, CreateInput{Role: models.RoleStaff})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, superAdmin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.svc.List(ctx, owner, models.InvitationPending)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "b1", own[0].BusinessID)

	_, err = f.svc.List(ctx, superAdmin, "weird")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

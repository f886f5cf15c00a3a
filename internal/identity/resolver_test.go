package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LPredmore/lh-ehr/pkg/config"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) FindUserByAuthRef(ctx context.Context, authRef string) (*types.User, error) {
	args := m.Called(ctx, authRef)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectory) FindPatientByAuthRef(ctx context.Context, authRef string) (*types.Patient, error) {
	args := m.Called(ctx, authRef)
	if p := args.Get(0); p != nil {
		return p.(*types.Patient), args.Error(1)
	}
	return nil, args.Error(1)
}

func testResolver(dir Directory) *Resolver {
	return NewResolver(&config.JWTConfig{
		SecretKey: "test-secret",
		Issuer:    "lh-ehr",
		Audience:  "lh-ehr-api",
	}, dir, nil)
}

func TestResolveProviderToken(t *testing.T) {
	dir := new(mockDirectory)
	r := testResolver(dir)

	dir.On("FindUserByAuthRef", mock.Anything, "auth-prov").Return(&types.User{
		ID:       "u-prov",
		AuthRef:  "auth-prov",
		Role:     types.RoleProvider,
		IsActive: true,
	}, nil)

	token, err := r.Mint("auth-prov", time.Minute)
	require.NoError(t, err)

	p, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-prov", p.UserID)
	assert.Equal(t, types.RoleProvider, p.Role)
	assert.Empty(t, p.PatientID)
	dir.AssertExpectations(t)
}

func TestResolvePortalPatientToken(t *testing.T) {
	dir := new(mockDirectory)
	r := testResolver(dir)

	dir.On("FindUserByAuthRef", mock.Anything, "auth-pat").Return(nil, nil)
	dir.On("FindPatientByAuthRef", mock.Anything, "auth-pat").Return(&types.Patient{
		ID:       "pat-1",
		AuthRef:  "auth-pat",
		IsActive: true,
	}, nil)

	token, err := r.Mint("auth-pat", time.Minute)
	require.NoError(t, err)

	p, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Empty(t, p.UserID)
	assert.Equal(t, "pat-1", p.PatientID)
	assert.Equal(t, types.RolePatient, p.Role)
}

func TestResolveUnknownSubject(t *testing.T) {
	dir := new(mockDirectory)
	r := testResolver(dir)

	dir.On("FindUserByAuthRef", mock.Anything, "auth-ghost").Return(nil, nil)
	dir.On("FindPatientByAuthRef", mock.Anything, "auth-ghost").Return(nil, nil)

	token, err := r.Mint("auth-ghost", time.Minute)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), token)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindUnauthenticated))
}

func TestResolveInactiveUser(t *testing.T) {
	dir := new(mockDirectory)
	r := testResolver(dir)

	dir.On("FindUserByAuthRef", mock.Anything, "auth-gone").Return(&types.User{
		ID:       "u-gone",
		Role:     types.RoleStaff,
		IsActive: false,
	}, nil)
	dir.On("FindPatientByAuthRef", mock.Anything, "auth-gone").Return(nil, nil)

	token, err := r.Mint("auth-gone", time.Minute)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), token)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindUnauthenticated))
}

func TestResolveExpiredToken(t *testing.T) {
	dir := new(mockDirectory)
	r := testResolver(dir)

	token, err := r.Mint("auth-prov", -time.Minute)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), token)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindUnauthenticated))
}

func TestResolveGarbageToken(t *testing.T) {
	dir := new(mockDirectory)
	r := testResolver(dir)

	_, err := r.Resolve(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindUnauthenticated))
}

func TestResolveWrongSecret(t *testing.T) {
	dir := new(mockDirectory)
	other := NewResolver(&config.JWTConfig{
		SecretKey: "different-secret",
		Issuer:    "lh-ehr",
		Audience:  "lh-ehr-api",
	}, dir, nil)

	token, err := other.Mint("auth-prov", time.Minute)
	require.NoError(t, err)

	r := testResolver(dir)
	_, err = r.Resolve(context.Background(), token)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrorKindUnauthenticated))
}

func TestResolvePatientUserWithLinkedRow(t *testing.T) {
	dir := new(mockDirectory)
	r := testResolver(dir)

	dir.On("FindUserByAuthRef", mock.Anything, "auth-pat2").Return(&types.User{
		ID:       "u-pat2",
		Role:     types.RolePatient,
		IsActive: true,
	}, nil)
	dir.On("FindPatientByAuthRef", mock.Anything, "auth-pat2").Return(&types.Patient{
		ID:       "pat-2",
		AuthRef:  "auth-pat2",
		IsActive: true,
	}, nil)

	token, err := r.Mint("auth-pat2", time.Minute)
	require.NoError(t, err)

	p, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-pat2", p.UserID)
	assert.Equal(t, "pat-2", p.PatientID)
	assert.Equal(t, types.RolePatient, p.Role)
}

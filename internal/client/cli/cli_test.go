package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskianand4/fieldkeeper/internal/client/auth"
	"github.com/riskianand4/fieldkeeper/internal/client/session"
	"github.com/riskianand4/fieldkeeper/internal/client/storage"
	"github.com/riskianand4/fieldkeeper/internal/fingerprint"
	"github.com/riskianand4/fieldkeeper/internal/models"
	pkgapi "github.com/riskianand4/fieldkeeper/pkg/api"
)

// recorderIO пишет весь вывод в буфер и отдает заготовленный ввод
type recorderIO struct {
	out      strings.Builder
	input    string
	password string
}

func (r *recorderIO) Println(a ...any) {
	r.out.WriteString(fmt.Sprintln(a...))
}

func (r *recorderIO) Printf(format string, a ...any) {
	fmt.Fprintf(&r.out, format, a...)
}

func (r *recorderIO) ReadInput(prompt string) (string, error) {
	return r.input, nil
}

func (r *recorderIO) ReadPassword(prompt string) (string, error) {
	return r.password, nil
}

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (m *memStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return value, nil
}

func (m *memStorage) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeAPI struct {
	token       string
	loginResp   *pkgapi.TokenResponse
	loginErr    error
	logoutErr   error
	logoutCalls int
}

func (f *fakeAPI) Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResp, nil
}

func (f *fakeAPI) RefreshToken(ctx context.Context) (*pkgapi.RefreshResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAPI) SetToken(token string) { f.token = token }

func (f *fakeAPI) Token() string { return f.token }

func staticFingerprints() *fingerprint.Manager {
	values := map[string]string{
		models.ComponentHostname:   "wks-042",
		models.ComponentTimezone:   "Asia/Jakarta",
		models.ComponentLanguage:   "id_ID.UTF-8",
		models.ComponentPlatform:   "linux/amd64",
		models.ComponentMachineID:  "3f2a9c1e7b8d4a5f",
		models.ComponentHardware:   "LENOVO|ThinkPad T14",
		models.ComponentSerial:     "PF3XXXXX",
		models.ComponentInterfaces: "aa:bb:cc:dd:ee:01",
	}

	probes := make([]fingerprint.Probe, 0, len(values))
	for name, value := range values {
		name, value := name, value
		probes = append(probes, fingerprint.Probe{
			Name:     name,
			Sentinel: "no-" + name,
			Collect: func(ctx context.Context) (string, error) {
				return value, nil
			},
		})
	}
	return fingerprint.NewManagerWithProbes(nil, probes)
}

func newTestCli(t *testing.T, io *recorderIO, apiClient *fakeAPI) (*Cli, *auth.Store) {
	t.Helper()

	st := newMemStorage()
	devices := staticFingerprints()
	store := auth.NewStore(st, devices, "https://dispatch.example.com", nil)
	sessions := session.NewManager(store, apiClient, st, nil)

	return New(io, apiClient, store, sessions, devices, nil), store
}

func TestRunLogin(t *testing.T) {
	io := &recorderIO{input: "technician1", password: "secret"}
	apiClient := &fakeAPI{
		loginResp: &pkgapi.TokenResponse{
			Token: "issued-token",
			User:  &models.User{ID: "u1", Username: "technician1", Role: "technician"},
		},
	}
	c, store := newTestCli(t, io, apiClient)

	require.NoError(t, c.Run(context.Background(), "login"))

	// Токен ушел и в исходящий слой, и в device-bound хранилище
	assert.Equal(t, "issued-token", apiClient.Token())
	result := store.GetToken(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, "issued-token", result.Token)

	assert.Contains(t, io.out.String(), "Login successful")
	assert.Contains(t, io.out.String(), "technician1")
}

func TestRunLoginRejectsBadUsername(t *testing.T) {
	io := &recorderIO{input: "bad user!", password: "secret"}
	c, _ := newTestCli(t, io, &fakeAPI{})

	err := c.Run(context.Background(), "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid username")
}

func TestRunLogoutSurvivesServerError(t *testing.T) {
	io := &recorderIO{input: "technician1", password: "secret"}
	apiClient := &fakeAPI{
		loginResp: &pkgapi.TokenResponse{Token: "issued-token"},
		logoutErr: errors.New("backend unreachable"),
	}
	c, store := newTestCli(t, io, apiClient)
	require.NoError(t, c.Run(context.Background(), "login"))

	// Недоступный бэкенд не блокирует локальный logout
	require.NoError(t, c.Run(context.Background(), "logout"))

	assert.Equal(t, 1, apiClient.logoutCalls)
	assert.Empty(t, apiClient.Token())
	assert.Nil(t, store.GetToken(context.Background()))
	assert.Contains(t, io.out.String(), "Logout successful")
}

func TestRunStatusNotAuthenticated(t *testing.T) {
	io := &recorderIO{}
	c, _ := newTestCli(t, io, &fakeAPI{})

	require.NoError(t, c.Run(context.Background(), "status"))
	assert.Contains(t, io.out.String(), "Not authenticated")
}

func TestRunStatusAuthenticated(t *testing.T) {
	io := &recorderIO{input: "technician1", password: "secret"}
	apiClient := &fakeAPI{
		loginResp: &pkgapi.TokenResponse{
			Token: "issued-token",
			User:  &models.User{ID: "u1", Username: "technician1", Role: "technician"},
		},
	}
	c, _ := newTestCli(t, io, apiClient)
	require.NoError(t, c.Run(context.Background(), "login"))

	require.NoError(t, c.Run(context.Background(), "status"))

	out := io.out.String()
	assert.Contains(t, out, "Status: Authenticated")
	assert.Contains(t, out, "technician1")
	assert.Contains(t, out, "Logged in within the last minute")
}

func TestRunDevice(t *testing.T) {
	io := &recorderIO{}
	c, _ := newTestCli(t, io, &fakeAPI{})

	require.NoError(t, c.Run(context.Background(), "device"))

	out := io.out.String()
	assert.Contains(t, out, "Device Fingerprint")
	assert.Contains(t, out, models.ComponentHostname)
	assert.Contains(t, out, "wks-042")
	assert.Contains(t, out, "LENOVO|ThinkPad T14")
}

func TestRunUnknownCommand(t *testing.T) {
	c, _ := newTestCli(t, &recorderIO{}, &fakeAPI{})

	err := c.Run(context.Background(), "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

package broker

//go:generate mockgen -source=broker.go -destination=mocks/mocks.go -package=mocks TenantRegistry
//go:generate mockgen -source=exchanger.go -destination=mocks/exchanger_mock.go -package=mocks Exchanger,HTTPDoer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	directory "roster/contracts/directory"
	"roster/internal/broker/mocks"
	"roster/internal/tenant/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

type BrokerSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockRegistry  *mocks.MockTenantRegistry
	mockExchanger *mocks.MockExchanger
	cache         *MemoryCache
	clock         *fakeClock
	broker        *Broker

	sessionID id.SessionID
	tenant    *models.Tenant
	creds     *models.DirectoryCredentials
}

func TestBrokerSuite(t *testing.T) {
	suite.Run(t, new(BrokerSuite))
}

func (s *BrokerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockRegistry = mocks.NewMockTenantRegistry(s.ctrl)
	s.mockExchanger = mocks.NewMockExchanger(s.ctrl)
	s.cache = NewMemoryCache()
	s.clock = &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}

	s.sessionID = id.NewSessionID()
	s.tenant = &models.Tenant{
		ID:              id.NewTenantID(),
		ApplicationID:   uuid.NewString(),
		DirectoryID:     uuid.NewString(),
		EncryptedSecret: "v1:sealed",
		Status:          models.TenantStatusActive,
	}
	s.creds = &models.DirectoryCredentials{
		ApplicationID: s.tenant.ApplicationID,
		DirectoryID:   s.tenant.DirectoryID,
		ClientSecret:  "opened-secret",
	}

	s.broker = New(s.mockRegistry, s.cache, s.mockExchanger,
		WithClock(s.clock.Now),
		withRetryDelay(time.Millisecond),
	)
}

func (s *BrokerSuite) TearDownTest() {
	s.ctrl.Finish()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (s *BrokerSuite) expectResolve() {
	s.mockRegistry.EXPECT().ResolveTenant(gomock.Any(), s.sessionID).Return(s.tenant, nil).AnyTimes()
}

func (s *BrokerSuite) expectCredentials() {
	s.mockRegistry.EXPECT().Credentials(gomock.Any(), s.tenant.ID).Return(s.creds, nil).AnyTimes()
}

func (s *BrokerSuite) TestTokenCachedWithinValidity() {
	s.expectResolve()
	s.expectCredentials()
	s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(&directory.TokenResponse{
		AccessToken: "tok-1",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	}, nil).Times(1)

	first, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.Equal("tok-1", first.Bearer)
	s.False(first.FromCache)

	second, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.Equal("tok-1", second.Bearer)
	s.True(second.FromCache, "second call inside validity must not exchange")
}

func (s *BrokerSuite) TestTokenRefreshedInsideSafetyMargin() {
	s.expectResolve()
	s.expectCredentials()
	gomock.InOrder(
		s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(&directory.TokenResponse{
			AccessToken: "tok-1", ExpiresIn: 3600,
		}, nil),
		s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(&directory.TokenResponse{
			AccessToken: "tok-2", ExpiresIn: 3600,
		}, nil),
	)

	_, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().NoError(err)

	// 56m elapsed: 4m of lifetime left, inside the 5m margin.
	s.clock.Advance(56 * time.Minute)

	tok, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.Equal("tok-2", tok.Bearer)
}

func (s *BrokerSuite) TestInvalidateForcesNewExchange() {
	s.expectResolve()
	s.expectCredentials()
	gomock.InOrder(
		s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(&directory.TokenResponse{
			AccessToken: "old", ExpiresIn: 3600,
		}, nil),
		s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(&directory.TokenResponse{
			AccessToken: "fresh", ExpiresIn: 3600,
		}, nil),
	)

	_, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().NoError(err)

	s.Require().NoError(s.broker.Invalidate(context.Background(), s.tenant.ID))

	tok, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.Equal("fresh", tok.Bearer, "invalidation must evict the cached token")
}

func (s *BrokerSuite) TestRejectionIsTerminal() {
	s.expectResolve()
	s.expectCredentials()
	s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(nil, &ExchangeError{
		StatusCode: 401,
		ErrorCode:  "invalid_client",
	}).Times(1)

	_, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenExchange))
}

func (s *BrokerSuite) TestNetworkErrorRetriedOnce() {
	s.expectResolve()
	s.expectCredentials()
	gomock.InOrder(
		s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(nil, errors.New("dial tcp: connection refused")),
		s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(&directory.TokenResponse{
			AccessToken: "tok-after-retry", ExpiresIn: 3600,
		}, nil),
	)

	tok, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.Equal("tok-after-retry", tok.Bearer)
}

func (s *BrokerSuite) TestNetworkErrorExhaustsAfterSingleRetry() {
	s.expectResolve()
	s.expectCredentials()
	s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).
		Return(nil, errors.New("dial tcp: connection refused")).Times(2)

	_, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenExchange))
}

func (s *BrokerSuite) TestExpiryFallsBackToJWTClaim() {
	s.expectResolve()
	s.expectCredentials()

	exp := s.clock.Now().Add(45 * time.Minute)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any-key"))
	s.Require().NoError(err)

	s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(&directory.TokenResponse{
		AccessToken: signed,
	}, nil).Times(1)

	tok, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.WithinDuration(exp, tok.ExpiresAt, time.Second)
}

func (s *BrokerSuite) TestExpiryDefaultsWhenUnknown() {
	s.expectResolve()
	s.expectCredentials()
	s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(&directory.TokenResponse{
		AccessToken: "opaque-token",
	}, nil).Times(1)

	tok, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.Equal(s.clock.Now().Add(defaultTokenLifetime), tok.ExpiresAt)
}

func (s *BrokerSuite) TestResolutionFailurePropagates() {
	resolveErr := dErrors.New(dErrors.CodeSessionExpired, "session expired")
	s.mockRegistry.EXPECT().ResolveTenant(gomock.Any(), s.sessionID).Return(nil, resolveErr)

	_, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSessionExpired))
}

func (s *BrokerSuite) TestForceRefreshBypassesValidCache() {
	s.expectResolve()
	s.expectCredentials()
	gomock.InOrder(
		s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(&directory.TokenResponse{
			AccessToken: "cached", ExpiresIn: 3600,
		}, nil),
		s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).Return(&directory.TokenResponse{
			AccessToken: "forced", ExpiresIn: 3600,
		}, nil),
	)

	_, err := s.broker.Token(context.Background(), s.sessionID)
	s.Require().NoError(err)

	tok, err := s.broker.ForceRefresh(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.Equal("forced", tok.Bearer)
	s.False(tok.FromCache)
}

func (s *BrokerSuite) TestConcurrentRequestsCollapseToOneExchange() {
	s.expectResolve()
	s.expectCredentials()
	s.mockExchanger.EXPECT().Exchange(gomock.Any(), s.creds).
		DoAndReturn(func(context.Context, *models.DirectoryCredentials) (*directory.TokenResponse, error) {
			time.Sleep(20 * time.Millisecond)
			return &directory.TokenResponse{AccessToken: "shared", ExpiresIn: 3600}, nil
		}).Times(1)

	const workers = 8
	var wg sync.WaitGroup
	tokens := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := s.broker.Token(context.Background(), s.sessionID)
			if err != nil {
				errs[i] = err
				return
			}
			tokens[i] = tok.Bearer
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		s.Require().NoError(errs[i])
		s.Equal("shared", tokens[i])
	}
}

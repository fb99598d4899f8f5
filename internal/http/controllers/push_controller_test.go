package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authpush/internal/accounts"
	"github.com/dropDatabas3/authpush/internal/http/controllers"
	"github.com/dropDatabas3/authpush/internal/domain/types"
	"github.com/dropDatabas3/authpush/internal/http/dto"
	"github.com/dropDatabas3/authpush/internal/http/router"
	"github.com/dropDatabas3/authpush/internal/messaging"
	"github.com/dropDatabas3/authpush/internal/push"
	"github.com/dropDatabas3/authpush/internal/rate"
	"github.com/dropDatabas3/authpush/internal/requeststore"
	"github.com/dropDatabas3/authpush/internal/security/otp"
)

type apiFixture struct {
	srv    *httptest.Server
	engine *otp.Engine
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIWithLimiter(t, nil)
}

func newAPIWithLimiter(t *testing.T, limiter rate.Limiter) *apiFixture {
	t.Helper()
	engine, err := otp.New(otp.Config{})
	require.NoError(t, err)

	authStore := requeststore.NewMemory[types.PushRequest](time.Minute, 0)
	regStore := requeststore.NewMemory[types.RegistrationRequest](time.Minute, 0)
	repo := accounts.NewMemory()

	svc := push.New(push.Config{ChallengeKind: types.ChallengeWrite}, push.Deps{
		Accounts:      repo,
		AuthRequests:  authStore,
		Registrations: regStore,
		Gateway:       messaging.NoopGateway{},
		OTP:           engine,
	})

	ctrl := controllers.NewPushController(svc, map[string]controllers.Pinger{"accounts": repo}, limiter)
	srv := httptest.NewServer(router.New(router.Deps{Push: ctrl}))
	t.Cleanup(func() {
		srv.Close()
		_ = authStore.Close()
		_ = regStore.Close()
	})
	return &apiFixture{srv: srv, engine: engine}
}

func (f *apiFixture) post(t *testing.T, path string, body, out any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (f *apiFixture) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (f *apiFixture) currentOTP(t *testing.T, secret string) string {
	t.Helper()
	code, err := f.engine.CurrentCode(secret, time.Now())
	require.NoError(t, err)
	return fmt.Sprintf("%06d", code)
}

func TestAPI_FullEnrollmentAndLoginFlow(t *testing.T) {
	f := newAPI(t)

	// 1. Enrolamiento
	var reg dto.CreateRegistrationResponse
	resp := f.post(t, "/push/registration", dto.CreateRegistrationRequest{Username: "alice"}, &reg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, reg.Secret)
	require.Contains(t, reg.AuthURL, "otpauth://totp/")

	var res dto.ResultResponse
	resp = f.post(t, "/push/registration/device", dto.RegisterDeviceRequest{
		EncodedSecret: reg.Secret,
		DeviceName:    "phone",
		DeviceType:    "ANDROID",
		PushID:        "push-1",
		DeviceKeyID:   "dk-1",
		InitialCode:   f.currentOTP(t, reg.Secret),
	}, &res)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, res.Success)

	var st dto.StatusResponse
	f.get(t, "/push/check/registration?request_id="+reg.RequestID, &st)
	require.Equal(t, "REGISTERED", st.Status)

	var fin dto.FinalizeRegistrationResponse
	resp = f.post(t, "/push/registration/finalize", dto.FinalizeRegistrationRequest{RequestID: reg.RequestID}, &fin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alice", fin.Username)

	// 2. Push authentication
	var ini dto.InitiateResponse
	resp = f.post(t, "/push/initiate", dto.InitiateRequest{Username: "alice"}, &ini)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "push-1", ini.PushID)
	require.Len(t, ini.Prompt, 5)

	f.get(t, "/push/check/login?push_id=push-1", &st)
	require.Equal(t, "PENDING", st.Status)

	resp = f.post(t, "/push/submit", dto.SubmitRequest{
		PushID:            "push-1",
		OTP:               f.currentOTP(t, reg.Secret),
		ChallengeResponse: ini.Prompt,
	}, &res)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, res.Success)

	f.get(t, "/push/check/login?push_id=push-1", &st)
	require.Equal(t, "APPROVED", st.Status)

	// 3. OTP standalone
	resp = f.post(t, "/otp/validate", dto.ValidateTokenRequest{
		Username: "alice",
		Token:    f.currentOTP(t, reg.Secret),
	}, &res)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, res.Success)
}

func TestAPI_ErrorMapping(t *testing.T) {
	f := newAPI(t)

	// Device desconocido → 404
	resp := f.post(t, "/push/initiate", dto.InitiateRequest{Username: "ghost"}, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Whitelist de device type → 400
	resp = f.post(t, "/push/registration/device", dto.RegisterDeviceRequest{
		DeviceType: "WINDOWS_PHONE",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Body inválido → 400
	r, err := http.Post(f.srv.URL+"/push/initiate", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	r.Body.Close()
	require.Equal(t, http.StatusBadRequest, r.StatusCode)

	// Status de un push id inexistente es NOT_FOUND pero el GET es 200.
	var st dto.StatusResponse
	resp = f.get(t, "/push/check/login?push_id=nope", &st)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", st.Status)

	// Falta query param → 400
	resp = f.get(t, "/push/check/login", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Método equivocado responde con el catálogo, no con el default de chi.
	resp = f.get(t, "/push/initiate", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPI_SecurityAndObservabilityHeaders(t *testing.T) {
	f := newAPI(t)

	resp := f.get(t, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAPI_Metrics(t *testing.T) {
	f := newAPI(t)
	resp := f.get(t, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_CreateCredentials(t *testing.T) {
	f := newAPI(t)

	var creds dto.CreateCredentialsResponse
	resp := f.post(t, "/otp/credentials", struct{}{}, &creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, creds.Secret)
	require.Len(t, creds.ScratchCodes, 5)
	// El secreto recién emitido ya computa códigos.
	require.Len(t, f.currentOTP(t, creds.Secret), 6)
}

func TestAPI_InitiateRateLimited(t *testing.T) {
	f := newAPIWithLimiter(t, rate.NewMemoryLimiter(2, time.Minute))

	// Sin dispositivo registrado el initiate da 404, pero igual consume cuota.
	for i := 0; i < 2; i++ {
		resp := f.post(t, "/push/initiate", dto.InitiateRequest{Username: "alice"}, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	resp := f.post(t, "/push/initiate", dto.InitiateRequest{Username: "alice"}, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Otro username tiene su propia ventana.
	resp = f.post(t, "/push/initiate", dto.InitiateRequest{Username: "bob"}, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

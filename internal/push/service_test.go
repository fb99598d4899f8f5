package push

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authpush/internal/accounts"
	"github.com/dropDatabas3/authpush/internal/domain/types"
	"github.com/dropDatabas3/authpush/internal/messaging"
	"github.com/dropDatabas3/authpush/internal/requeststore"
	"github.com/dropDatabas3/authpush/internal/security/otp"
)

// fakeGateway registra las notificaciones enviadas y puede simular fallos.
type fakeGateway struct {
	mu   sync.Mutex
	sent []messaging.Notification
	fail bool
}

func (g *fakeGateway) SendPushNotification(ctx context.Context, n messaging.Notification) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return false
	}
	g.sent = append(g.sent, n)
	return true
}

func (g *fakeGateway) last() messaging.Notification {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sent[len(g.sent)-1]
}

type fixture struct {
	svc     *Service
	repo    *accounts.MemoryRepo
	gateway *fakeGateway
	engine  *otp.Engine
}

func newFixture(t *testing.T, kind types.ChallengeKind) *fixture {
	t.Helper()
	engine, err := otp.New(otp.Config{})
	require.NoError(t, err)

	authStore := requeststore.NewMemory[types.PushRequest](time.Minute, 0)
	regStore := requeststore.NewMemory[types.RegistrationRequest](time.Minute, 0)
	t.Cleanup(func() {
		_ = authStore.Close()
		_ = regStore.Close()
	})

	repo := accounts.NewMemory()
	gw := &fakeGateway{}
	svc := New(Config{
		ChallengeKind: kind,
		AuthTimeout:   time.Minute,
		CallbackURL:   "https://cas.example.org/push/submit",
	}, Deps{
		Accounts:      repo,
		AuthRequests:  authStore,
		Registrations: regStore,
		Gateway:       gw,
		OTP:           engine,
	})
	return &fixture{svc: svc, repo: repo, gateway: gw, engine: engine}
}

// currentOTP formatea el TOTP vigente para un secreto.
func (f *fixture) currentOTP(t *testing.T, secret string) string {
	t.Helper()
	code, err := f.engine.CurrentCode(secret, time.Now())
	require.NoError(t, err)
	return fmt.Sprintf("%06d", code)
}

// enroll corre el flujo completo de registro y retorna la cuenta durable.
func (f *fixture) enroll(t *testing.T, username, pushID, deviceKeyID string) *types.Account {
	t.Helper()
	ctx := context.Background()

	ticket, res := f.svc.CreateRegistration(ctx, username)
	require.True(t, res.Success)

	res = f.svc.RegisterDevice(ctx, RegisterDeviceInput{
		EncodedSecret: ticket.Secret,
		DeviceName:    "test phone",
		DeviceType:    types.DeviceAndroid,
		PushID:        pushID,
		DeviceKeyID:   deviceKeyID,
		InitialCode:   f.currentOTP(t, ticket.Secret),
	})
	require.True(t, res.Success, "register device: %s", res.Message)

	require.Equal(t, types.RegistrationRegistered, f.svc.CheckRegistrationStatus(ctx, ticket.RequestID))

	acc, res := f.svc.FinalizeRegistration(ctx, ticket.RequestID)
	require.True(t, res.Success)
	return acc
}

func TestRegistration_HappyPath(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()

	acc := f.enroll(t, "alice", "push-a", "dk-a")
	require.Equal(t, "alice", acc.Username)
	require.Equal(t, "push-a", acc.PushID)
	require.True(t, acc.PushCapable())
	require.Len(t, acc.ScratchCodes, 5)

	// El request de registro se consumió al finalizar.
	_, res := f.svc.FinalizeRegistration(ctx, "whatever")
	require.Equal(t, CodeRequestNotFound, res.Code)
}

func TestRegistration_WrongInitialCodeRejects(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()

	ticket, res := f.svc.CreateRegistration(ctx, "bob")
	require.True(t, res.Success)
	require.NotEmpty(t, ticket.AuthURL)

	res = f.svc.RegisterDevice(ctx, RegisterDeviceInput{
		EncodedSecret: ticket.Secret,
		DeviceType:    types.DeviceIOS,
		PushID:        "push-b",
		DeviceKeyID:   "dk-b",
		InitialCode:   "000000",
	})
	require.Equal(t, CodeInvalidOTP, res.Code)

	// REJECTED es terminal: el status nunca vuelve a PENDING y un segundo
	// intento contra el mismo secreto no encuentra request vivo.
	require.Equal(t, types.RegistrationRejected, f.svc.CheckRegistrationStatus(ctx, ticket.RequestID))
	res = f.svc.RegisterDevice(ctx, RegisterDeviceInput{
		EncodedSecret: ticket.Secret,
		InitialCode:   f.currentOTP(t, ticket.Secret),
	})
	require.Equal(t, CodeRequestNotFound, res.Code)

	_, res = f.svc.FinalizeRegistration(ctx, ticket.RequestID)
	require.Equal(t, CodeRequestNotFound, res.Code)
}

func TestRegistration_UnknownSecret(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)

	res := f.svc.RegisterDevice(context.Background(), RegisterDeviceInput{
		EncodedSecret: "NOSUCHSECRET",
		InitialCode:   "123456",
	})
	require.Equal(t, CodeDeviceNotFound, res.Code)
}

func TestInitiate_WriteChallengeValidateApproved(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()
	acc := f.enroll(t, "alice", "push-a", "dk-a")

	ini, res := f.svc.InitiatePushAuthentication(ctx, "alice")
	require.True(t, res.Success)
	require.Equal(t, "push-a", ini.PushID)
	require.Len(t, ini.Prompt, 5, "WRITE muestra un número de 5 dígitos")

	// Para WRITE el dispositivo no recibe datos: el número está en el browser.
	require.Empty(t, f.gateway.last().Payload)
	require.Equal(t, "dk-a", f.gateway.last().KeyID)

	require.Equal(t, types.PushPending, f.svc.CheckPushAuthenticationStatus(ctx, "push-a"))
	// El polling es idempotente.
	require.Equal(t, types.PushPending, f.svc.CheckPushAuthenticationStatus(ctx, "push-a"))

	res = f.svc.ValidatePushAuthentication(ctx, "push-a", f.currentOTP(t, acc.Secret), ini.Prompt)
	require.True(t, res.Success)
	require.Equal(t, types.PushApproved, f.svc.CheckPushAuthenticationStatus(ctx, "push-a"))

	// Terminal: no hay doble transición.
	res = f.svc.ValidatePushAuthentication(ctx, "push-a", f.currentOTP(t, acc.Secret), ini.Prompt)
	require.Equal(t, CodeRequestNotFound, res.Code)
	res = f.svc.TerminatePushAuthentication(ctx, "push-a", f.currentOTP(t, acc.Secret))
	require.Equal(t, CodeRequestNotFound, res.Code)
}

func TestInitiate_ChooseChallengeSendsOptions(t *testing.T) {
	f := newFixture(t, types.ChallengeChoose)
	ctx := context.Background()
	acc := f.enroll(t, "alice", "push-a", "dk-a")

	ini, res := f.svc.InitiatePushAuthentication(ctx, "alice")
	require.True(t, res.Success)

	// CHOOSE manda las opciones al dispositivo pero nunca cuál es la correcta.
	payload := f.gateway.last().Payload
	require.NotEmpty(t, payload)
	require.Contains(t, payload, ini.Prompt)

	res = f.svc.ValidatePushAuthentication(ctx, "push-a", f.currentOTP(t, acc.Secret), ini.Prompt)
	require.True(t, res.Success)
}

func TestValidate_WrongChallengeResponseRejects(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()
	acc := f.enroll(t, "alice", "push-a", "dk-a")

	ini, res := f.svc.InitiatePushAuthentication(ctx, "alice")
	require.True(t, res.Success)

	wrong := "00000"
	if ini.Prompt == wrong {
		wrong = "11111"
	}
	res = f.svc.ValidatePushAuthentication(ctx, "push-a", f.currentOTP(t, acc.Secret), wrong)
	require.Equal(t, CodeInvalidChallengeResponse, res.Code)
	require.Equal(t, types.PushRejected, f.svc.CheckPushAuthenticationStatus(ctx, "push-a"))
}

func TestValidateCredential_RequiresApprovedPush(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()
	acc := f.enroll(t, "alice", "push-a", "dk-a")

	// OTP válido sin request push aprobado no alcanza.
	res := f.svc.ValidateCredential(ctx, "alice", f.currentOTP(t, acc.Secret))
	require.Equal(t, CodeRequestNotFound, res.Code)

	ini, res := f.svc.InitiatePushAuthentication(ctx, "alice")
	require.True(t, res.Success)

	// PENDING tampoco alcanza.
	res = f.svc.ValidateCredential(ctx, "alice", f.currentOTP(t, acc.Secret))
	require.Equal(t, CodeRequestNotFound, res.Code)

	res = f.svc.ValidatePushAuthentication(ctx, "push-a", f.currentOTP(t, acc.Secret), ini.Prompt)
	require.True(t, res.Success)

	res = f.svc.ValidateCredential(ctx, "alice", f.currentOTP(t, acc.Secret))
	require.True(t, res.Success)

	// Push aprobado con OTP inválido sigue fallando.
	res = f.svc.ValidateCredential(ctx, "alice", "000001")
	require.Equal(t, CodeInvalidOTP, res.Code)
}

func TestValidate_WrongOTPRejects(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()
	f.enroll(t, "alice", "push-a", "dk-a")

	ini, res := f.svc.InitiatePushAuthentication(ctx, "alice")
	require.True(t, res.Success)

	res = f.svc.ValidatePushAuthentication(ctx, "push-a", "000001", ini.Prompt)
	require.Equal(t, CodeInvalidOTP, res.Code)
	require.Equal(t, types.PushRejected, f.svc.CheckPushAuthenticationStatus(ctx, "push-a"))
}

func TestValidate_NonNumericOTPLeavesPending(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()
	f.enroll(t, "alice", "push-a", "dk-a")

	ini, res := f.svc.InitiatePushAuthentication(ctx, "alice")
	require.True(t, res.Success)

	// Formato inválido se corta antes del trabajo criptográfico.
	res = f.svc.ValidatePushAuthentication(ctx, "push-a", "abcdef", ini.Prompt)
	require.Equal(t, CodeInvalidOTPFormat, res.Code)
	require.Equal(t, types.PushPending, f.svc.CheckPushAuthenticationStatus(ctx, "push-a"))
}

func TestTerminate(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()
	acc := f.enroll(t, "alice", "push-a", "dk-a")

	_, res := f.svc.InitiatePushAuthentication(ctx, "alice")
	require.True(t, res.Success)

	// OTP inválido no cancela nada.
	res = f.svc.TerminatePushAuthentication(ctx, "push-a", "000001")
	require.Equal(t, CodeInvalidOTP, res.Code)
	require.Equal(t, types.PushPending, f.svc.CheckPushAuthenticationStatus(ctx, "push-a"))

	res = f.svc.TerminatePushAuthentication(ctx, "push-a", f.currentOTP(t, acc.Secret))
	require.True(t, res.Success)
	require.Equal(t, types.PushRejected, f.svc.CheckPushAuthenticationStatus(ctx, "push-a"))
}

func TestUpdatePushID(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()
	acc := f.enroll(t, "alice", "push-old", "dk-a")

	ini, res := f.svc.InitiatePushAuthentication(ctx, "alice")
	require.True(t, res.Success)

	// OTP incorrecto: ni la cuenta ni el request cambian.
	res = f.svc.UpdatePushID(ctx, "dk-a", "push-new", "000001")
	require.Equal(t, CodeInvalidOTP, res.Code)
	require.Equal(t, types.PushPending, f.svc.CheckPushAuthenticationStatus(ctx, "push-old"))

	res = f.svc.UpdatePushID(ctx, "dk-a", "push-new", f.currentOTP(t, acc.Secret))
	require.True(t, res.Success)

	// El request en vuelo sigue vivo bajo el push id nuevo.
	require.Equal(t, types.PushNotFound, f.svc.CheckPushAuthenticationStatus(ctx, "push-old"))
	require.Equal(t, types.PushPending, f.svc.CheckPushAuthenticationStatus(ctx, "push-new"))

	got, err := f.repo.FindByDeviceKeyID(ctx, "dk-a")
	require.NoError(t, err)
	require.Equal(t, "push-new", got.PushID)

	// Y el desafío original sigue siendo validable.
	res = f.svc.ValidatePushAuthentication(ctx, "push-new", f.currentOTP(t, acc.Secret), ini.Prompt)
	require.True(t, res.Success)
}

func TestUpdatePushID_UnknownDevice(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	res := f.svc.UpdatePushID(context.Background(), "dk-ghost", "push-x", "123456")
	require.Equal(t, CodeDeviceNotFound, res.Code)
}

func TestInitiate_NoPushCapableDevice(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()

	// Cuenta sin device key: no es push-capable.
	_, err := f.repo.Create(ctx, "carol")
	require.NoError(t, err)

	ini, res := f.svc.InitiatePushAuthentication(ctx, "carol")
	require.Nil(t, ini)
	require.Equal(t, CodeDeviceNotFound, res.Code)
}

func TestInitiate_GatewayFailureLeavesNoRequest(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()
	f.enroll(t, "alice", "push-a", "dk-a")

	f.gateway.fail = true
	ini, res := f.svc.InitiatePushAuthentication(ctx, "alice")
	require.Nil(t, ini)
	require.Equal(t, CodeInternalError, res.Code)
	require.Equal(t, types.PushNotFound, f.svc.CheckPushAuthenticationStatus(ctx, "push-a"))
}

func TestValidateToken_TOTPAndScratch(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	ctx := context.Background()
	acc := f.enroll(t, "alice", "push-a", "dk-a")

	res := f.svc.ValidateToken(ctx, "alice", f.currentOTP(t, acc.Secret))
	require.True(t, res.Success)

	res = f.svc.ValidateToken(ctx, "alice", "not-a-number")
	require.Equal(t, CodeInvalidOTPFormat, res.Code)

	// Scratch code: vale una vez, después desaparece de la cuenta.
	scratch := acc.ScratchCodes[0]
	res = f.svc.ValidateToken(ctx, "alice", scratch)
	require.True(t, res.Success)

	res = f.svc.ValidateToken(ctx, "alice", scratch)
	require.Equal(t, CodeInvalidOTP, res.Code)

	res = f.svc.ValidateToken(ctx, "ghost", "123456")
	require.Equal(t, CodeDeviceNotFound, res.Code)
}

func TestCreateCredentials(t *testing.T) {
	f := newFixture(t, types.ChallengeWrite)
	key, err := f.svc.CreateCredentials(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, key.Secret)
	require.Len(t, key.ScratchCodes, 5)
}

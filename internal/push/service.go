package push

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/authpush/internal/domain/repository"
	"github.com/dropDatabas3/authpush/internal/domain/types"
	"github.com/dropDatabas3/authpush/internal/messaging"
	"github.com/dropDatabas3/authpush/internal/metrics"
	"github.com/dropDatabas3/authpush/internal/observability/logger"
	"github.com/dropDatabas3/authpush/internal/requeststore"
	"github.com/dropDatabas3/authpush/internal/security/otp"
)

// Config son los parámetros del orquestador.
type Config struct {
	// ChallengeKind es el tipo de desafío que se genera al iniciar.
	ChallengeKind types.ChallengeKind
	// AuthTimeout es cuánto vive un push authentication request.
	AuthTimeout time.Duration
	// RegistrationTimeout es cuánto vive un registration request.
	RegistrationTimeout time.Duration
	// Issuer aparece en el otpauth URI del enrolamiento.
	Issuer string
	// CallbackURL es adonde el dispositivo postea su respuesta.
	CallbackURL string
}

func (c Config) withDefaults() Config {
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 60 * time.Second
	}
	if c.RegistrationTimeout <= 0 {
		c.RegistrationTimeout = 10 * time.Minute
	}
	if c.Issuer == "" {
		c.Issuer = "authpush"
	}
	return c
}

// Deps agrupa los colaboradores del orquestador.
type Deps struct {
	Accounts      repository.AccountRepository
	AuthRequests  requeststore.Store[types.PushRequest]
	Registrations requeststore.Store[types.RegistrationRequest]
	Gateway       messaging.Gateway
	OTP           *otp.Engine
}

// Service es el orquestador de push challenges. Todas las operaciones
// retornan un ValidationResult; ningún error de colaborador escapa de
// esta capa.
type Service struct {
	cfg  Config
	deps Deps
	sf   singleflight.Group
}

// New crea el orquestador.
func New(cfg Config, deps Deps) *Service {
	return &Service{cfg: cfg.withDefaults(), deps: deps}
}

// observe registra métricas de la operación.
func observe(op string, start time.Time, res ValidationResult) ValidationResult {
	metrics.PushOperations.WithLabelValues(op, string(res.Code)).Inc()
	metrics.PushOperationLatency.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
	return res
}

// parseOTP valida el formato antes de hacer trabajo criptográfico.
func parseOTP(s string) (int, bool) {
	code, err := strconv.Atoi(s)
	if err != nil || code < 0 {
		return 0, false
	}
	return code, true
}

// ─── Credentials ───

// CreateCredentials genera material OTP fresco sin persistir nada.
func (s *Service) CreateCredentials(ctx context.Context) (*otp.Key, error) {
	return s.deps.OTP.CreateCredentials()
}

// ─── Registration ───

// RegistrationTicket es lo que se presenta al usuario para enrolar.
type RegistrationTicket struct {
	RequestID      string    `json:"request_id"`
	Secret         string    `json:"secret"`
	ValidationCode int       `json:"validation_code"`
	ScratchCodes   []string  `json:"scratch_codes"`
	AuthURL        string    `json:"auth_url"`
	ValidUntil     time.Time `json:"valid_until"`
}

// CreateRegistration arranca el enrolamiento: genera credenciales y deja
// un registration request PENDING indexado por el secreto codificado. La
// cuenta durable recién se crea al finalizar.
func (s *Service) CreateRegistration(ctx context.Context, username string) (*RegistrationTicket, ValidationResult) {
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("push"), logger.Op("create_registration"), logger.Username(username))

	key, err := s.deps.OTP.CreateCredentials()
	if err != nil {
		log.Error("credential generation failed", logger.Err(err))
		return nil, observe("create_registration", start, resultFail(CodeInternalError, "credential generation failed"))
	}

	now := time.Now().UTC()
	req := types.RegistrationRequest{
		AccountID:      uuid.NewString(),
		RequestID:      uuid.NewString(),
		Username:       username,
		EncodedSecret:  key.Secret,
		ValidationCode: key.ValidationCode,
		ScratchCodes:   key.ScratchCodes,
		StartedAt:      now,
		Status:         types.RegistrationPending,
		ValidUntil:     now.Add(s.cfg.RegistrationTimeout),
	}

	err = s.deps.Registrations.WithSecondaryLock(ctx, key.Secret, func() error {
		return s.deps.Registrations.Put(ctx, req)
	})
	if err != nil {
		log.Error("store put failed", logger.Err(err))
		return nil, observe("create_registration", start, resultFail(CodeInternalError, "store unavailable"))
	}

	log.Info("registration started", logger.AuthRequestID(req.RequestID))
	return &RegistrationTicket{
		RequestID:      req.RequestID,
		Secret:         key.Secret,
		ValidationCode: key.ValidationCode,
		ScratchCodes:   key.ScratchCodes,
		AuthURL:        s.deps.OTP.AuthURL(s.cfg.Issuer, username, key.Secret),
		ValidUntil:     req.ValidUntil,
	}, observe("create_registration", start, resultOK())
}

// RegisterDeviceInput es lo que el dispositivo envía al enrolarse.
type RegisterDeviceInput struct {
	EncodedSecret string
	DeviceName    string
	DeviceType    types.DeviceType
	PushID        string
	DeviceKeyID   string
	InitialCode   string
}

// RegisterDevice procesa el enrolamiento desde el dispositivo: correlación
// por secreto codificado, verificación del código inicial y transición a
// REGISTERED o REJECTED. Un código inicial inválido consume el intento.
func (s *Service) RegisterDevice(ctx context.Context, in RegisterDeviceInput) ValidationResult {
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("push"), logger.Op("register_device"), logger.DeviceKeyID(in.DeviceKeyID))

	code, ok := parseOTP(in.InitialCode)
	if !ok {
		return observe("register_device", start, resultFail(CodeInvalidOTPFormat, "initial code must be numeric"))
	}

	res := resultFail(CodeInternalError, "store unavailable")
	err := s.deps.Registrations.WithSecondaryLock(ctx, in.EncodedSecret, func() error {
		req, found, err := s.deps.Registrations.GetBySecondaryKey(ctx, in.EncodedSecret)
		if err != nil {
			return err
		}
		if !found {
			res = resultFail(CodeDeviceNotFound, "no registration for that secret")
			return nil
		}
		if req.Terminal() {
			res = resultFail(CodeRequestNotFound, "registration already resolved")
			return nil
		}

		req.DeviceName = in.DeviceName
		req.DeviceType = in.DeviceType
		req.PushID = in.PushID
		req.DeviceKeyID = in.DeviceKeyID

		valid, err := s.deps.OTP.CheckCode(req.EncodedSecret, code, time.Now())
		if err != nil {
			return err
		}
		if !valid {
			rejected := req.Rejected()
			if err := s.deps.Registrations.Update(ctx, rejected); err != nil {
				return err
			}
			res = resultFail(CodeInvalidOTP, "initial code mismatch")
			return nil
		}

		req.Status = types.RegistrationRegistered
		req.RespondedAt = time.Now().UTC()
		if err := s.deps.Registrations.Update(ctx, req); err != nil {
			return err
		}
		res = resultOK()
		return nil
	})
	if err != nil {
		log.Error("register device failed", logger.Err(err))
		return observe("register_device", start, resultFail(CodeInternalError, "store unavailable"))
	}
	if res.Success {
		log.Info("device registered")
	}
	return observe("register_device", start, res)
}

// CheckRegistrationStatus es una lectura pura por request id.
func (s *Service) CheckRegistrationStatus(ctx context.Context, requestID string) types.RegistrationStatus {
	req, found, err := s.deps.Registrations.Get(ctx, requestID)
	if err != nil || !found {
		return types.RegistrationNotFound
	}
	return req.Status
}

// FinalizeRegistration promueve un registration REGISTERED a cuenta
// durable y consume el request. Solo el host server lo invoca, tras ver
// REGISTERED en el status.
func (s *Service) FinalizeRegistration(ctx context.Context, requestID string) (*types.Account, ValidationResult) {
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("push"), logger.Op("finalize_registration"), logger.AuthRequestID(requestID))

	req, found, err := s.deps.Registrations.Get(ctx, requestID)
	if err != nil {
		log.Error("store get failed", logger.Err(err))
		return nil, observe("finalize_registration", start, resultFail(CodeInternalError, "store unavailable"))
	}
	if !found {
		return nil, observe("finalize_registration", start, resultFail(CodeRequestNotFound, "unknown registration request"))
	}
	if req.Status != types.RegistrationRegistered {
		return nil, observe("finalize_registration", start, resultFail(CodeRequestNotFound, "registration not completed"))
	}

	acc, err := s.deps.Accounts.Create(ctx, req.Username)
	if err != nil {
		log.Error("account create failed", logger.Err(err))
		return nil, observe("finalize_registration", start, resultFail(CodeInternalError, "account store unavailable"))
	}
	acc.Name = req.DeviceName
	acc.Secret = req.EncodedSecret
	acc.ValidationCode = req.ValidationCode
	acc.ScratchCodes = req.ScratchCodes
	acc.DeviceType = req.DeviceType
	acc.PushID = req.PushID
	acc.DeviceKeyID = req.DeviceKeyID
	if err := s.deps.Accounts.Update(ctx, acc); err != nil {
		log.Error("account update failed", logger.Err(err))
		return nil, observe("finalize_registration", start, resultFail(CodeInternalError, "account store unavailable"))
	}

	if err := s.deps.Registrations.Remove(ctx, requestID); err != nil {
		log.Warn("registration cleanup failed", logger.Err(err))
	}
	log.Info("registration finalized", logger.Username(req.Username))
	return acc, observe("finalize_registration", start, resultOK())
}

// ─── Push authentication ───

// Initiation es el resultado de iniciar una push authentication.
type Initiation struct {
	RequestID string `json:"request_id"`
	PushID    string `json:"push_id"`
	// Prompt es el dato que el browser muestra al usuario (vacío para
	// APPROVE; el número esperado para WRITE y CHOOSE).
	Prompt     string    `json:"prompt,omitempty"`
	ValidUntil time.Time `json:"valid_until"`
}

// InitiatePushAuthentication genera un desafío para el primer dispositivo
// push-capable del usuario y lo envía. Iniciaciones concurrentes para el
// mismo username se colapsan en una sola.
func (s *Service) InitiatePushAuthentication(ctx context.Context, username string) (*Initiation, ValidationResult) {
	start := time.Now()
	v, err, _ := s.sf.Do(username, func() (any, error) {
		ini, res := s.initiate(ctx, username)
		return &initiateOutcome{ini: ini, res: res}, nil
	})
	if err != nil {
		return nil, observe("initiate", start, resultFail(CodeInternalError, "initiation failed"))
	}
	out := v.(*initiateOutcome)
	return out.ini, observe("initiate", start, out.res)
}

type initiateOutcome struct {
	ini *Initiation
	res ValidationResult
}

func (s *Service) initiate(ctx context.Context, username string) (*Initiation, ValidationResult) {
	log := logger.From(ctx).With(logger.Layer("push"), logger.Op("initiate"), logger.Username(username))

	accs, err := s.deps.Accounts.FindByUsername(ctx, username)
	if err != nil {
		log.Error("account lookup failed", logger.Err(err))
		return nil, resultFail(CodeInternalError, "account store unavailable")
	}
	var acc *types.Account
	// Primer dispositivo push-capable; no hay selección por el usuario.
	for i := range accs {
		if accs[i].PushCapable() {
			acc = &accs[i]
			break
		}
	}
	if acc == nil {
		return nil, resultFail(CodeDeviceNotFound, "no push-capable device")
	}

	challenge := types.NewChallenge(s.cfg.ChallengeKind)
	now := time.Now().UTC()
	req := types.PushRequest{
		RequestID:  uuid.NewString(),
		UserID:     username,
		PushID:     acc.PushID,
		AccountID:  acc.ID,
		Challenge:  challenge,
		Status:     types.PushPending,
		ValidUntil: now.Add(s.cfg.AuthTimeout),
	}

	err = s.deps.AuthRequests.WithSecondaryLock(ctx, acc.PushID, func() error {
		return s.deps.AuthRequests.Put(ctx, req)
	})
	if err != nil {
		log.Error("store put failed", logger.Err(err))
		return nil, resultFail(CodeInternalError, "store unavailable")
	}

	sent := s.deps.Gateway.SendPushNotification(ctx, messaging.Notification{
		PushID:        acc.PushID,
		DeviceType:    acc.DeviceType,
		Kind:          challenge.Kind,
		Payload:       challenge.DevicePayload(),
		KeyID:         acc.DeviceKeyID,
		CorrelationID: req.RequestID,
		CallbackURL:   s.cfg.CallbackURL,
		ValidUntil:    req.ValidUntil,
	})
	if !sent {
		metrics.PushNotificationsSent.WithLabelValues("failure").Inc()
		// Sin entrega no hay push id utilizable; el caller debe reiniciar.
		_ = s.deps.AuthRequests.Remove(ctx, req.RequestID)
		return nil, resultFail(CodeInternalError, "push delivery failed")
	}
	metrics.PushNotificationsSent.WithLabelValues("success").Inc()

	log.Info("push challenge sent",
		logger.PushID(acc.PushID),
		logger.AuthRequestID(req.RequestID),
		logger.ChallengeKind(challenge.Kind.String()))
	return &Initiation{
		RequestID:  req.RequestID,
		PushID:     acc.PushID,
		Prompt:     challenge.Prompt(),
		ValidUntil: req.ValidUntil,
	}, resultOK()
}

// CheckPushAuthenticationStatus es una lectura pura por push id, sin
// efectos secundarios: el browser la pollea mientras espera al usuario.
func (s *Service) CheckPushAuthenticationStatus(ctx context.Context, pushID string) types.PushStatus {
	req, found, err := s.deps.AuthRequests.GetBySecondaryKey(ctx, pushID)
	if err != nil || !found {
		return types.PushNotFound
	}
	return req.Status
}

// ValidatePushAuthentication procesa la respuesta del dispositivo. OTP
// incorrecto o respuesta de desafío incorrecta rechazan el request de
// inmediato: el intento se consume, no hay retry contra el mismo desafío.
func (s *Service) ValidatePushAuthentication(ctx context.Context, pushID, otpCode, challengeResponse string) ValidationResult {
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("push"), logger.Op("validate"), logger.PushID(pushID))

	acc, err := s.deps.Accounts.FindByPushID(ctx, pushID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return observe("validate", start, resultFail(CodeDeviceNotFound, "unknown push id"))
		}
		log.Error("account lookup failed", logger.Err(err))
		return observe("validate", start, resultFail(CodeInternalError, "account store unavailable"))
	}

	code, ok := parseOTP(otpCode)
	if !ok {
		return observe("validate", start, resultFail(CodeInvalidOTPFormat, "otp must be numeric"))
	}

	res := resultFail(CodeInternalError, "store unavailable")
	err = s.deps.AuthRequests.WithSecondaryLock(ctx, pushID, func() error {
		req, found, err := s.deps.AuthRequests.GetBySecondaryKey(ctx, pushID)
		if err != nil {
			return err
		}
		if !found || req.Terminal() {
			res = resultFail(CodeRequestNotFound, "no pending request")
			return nil
		}

		req.OTP = otpCode
		req.UserResponse = challengeResponse

		valid, err := s.deps.OTP.CheckCode(acc.Secret, code, time.Now())
		if err != nil {
			return err
		}
		if !valid {
			metrics.OTPValidations.WithLabelValues("invalid").Inc()
			if err := s.deps.AuthRequests.Update(ctx, req.Rejected()); err != nil {
				return err
			}
			res = resultFail(CodeInvalidOTP, "otp mismatch")
			return nil
		}
		metrics.OTPValidations.WithLabelValues("valid").Inc()

		if !req.Challenge.Matches(challengeResponse) {
			if err := s.deps.AuthRequests.Update(ctx, req.Rejected()); err != nil {
				return err
			}
			res = resultFail(CodeInvalidChallengeResponse, "challenge response mismatch")
			return nil
		}

		req.Status = types.PushApproved
		req.RespondedAt = time.Now().UTC()
		if err := s.deps.AuthRequests.Update(ctx, req); err != nil {
			return err
		}
		res = resultOK()
		return nil
	})
	if err != nil {
		log.Error("validate failed", logger.Err(err))
		return observe("validate", start, resultFail(CodeInternalError, "store unavailable"))
	}
	log.Info("push validated", logger.RequestStatus(string(res.Code)))
	return observe("validate", start, res)
}

// TerminatePushAuthentication cancela el request pendiente desde el
// browser. Exige un OTP válido; con OTP inválido no cambia nada.
func (s *Service) TerminatePushAuthentication(ctx context.Context, pushID, otpCode string) ValidationResult {
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("push"), logger.Op("terminate"), logger.PushID(pushID))

	acc, err := s.deps.Accounts.FindByPushID(ctx, pushID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return observe("terminate", start, resultFail(CodeDeviceNotFound, "unknown push id"))
		}
		log.Error("account lookup failed", logger.Err(err))
		return observe("terminate", start, resultFail(CodeInternalError, "account store unavailable"))
	}

	code, ok := parseOTP(otpCode)
	if !ok {
		return observe("terminate", start, resultFail(CodeInvalidOTPFormat, "otp must be numeric"))
	}
	valid, err := s.deps.OTP.CheckCode(acc.Secret, code, time.Now())
	if err != nil {
		log.Error("otp check failed", logger.Err(err))
		return observe("terminate", start, resultFail(CodeInternalError, "otp engine failure"))
	}
	if !valid {
		return observe("terminate", start, resultFail(CodeInvalidOTP, "otp mismatch"))
	}

	res := resultFail(CodeInternalError, "store unavailable")
	err = s.deps.AuthRequests.WithSecondaryLock(ctx, pushID, func() error {
		req, found, err := s.deps.AuthRequests.GetBySecondaryKey(ctx, pushID)
		if err != nil {
			return err
		}
		if !found || req.Terminal() {
			res = resultFail(CodeRequestNotFound, "no pending request")
			return nil
		}
		req.OTP = otpCode
		if err := s.deps.AuthRequests.Update(ctx, req.Rejected()); err != nil {
			return err
		}
		res = resultOK()
		return nil
	})
	if err != nil {
		log.Error("terminate failed", logger.Err(err))
		return observe("terminate", start, resultFail(CodeInternalError, "store unavailable"))
	}
	if res.Success {
		log.Info("push terminated")
	}
	return observe("terminate", start, res)
}

// UpdatePushID rota el push token de un dispositivo. Exige un OTP válido;
// el request en vuelo (si lo hay) se re-indexa al push id nuevo para no
// invalidar un desafío en curso.
func (s *Service) UpdatePushID(ctx context.Context, deviceKeyID, newPushID, otpCode string) ValidationResult {
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("push"), logger.Op("update_push_id"), logger.DeviceKeyID(deviceKeyID))

	acc, err := s.deps.Accounts.FindByDeviceKeyID(ctx, deviceKeyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return observe("update_push_id", start, resultFail(CodeDeviceNotFound, "unknown device key"))
		}
		log.Error("account lookup failed", logger.Err(err))
		return observe("update_push_id", start, resultFail(CodeInternalError, "account store unavailable"))
	}

	code, ok := parseOTP(otpCode)
	if !ok {
		return observe("update_push_id", start, resultFail(CodeInvalidOTPFormat, "otp must be numeric"))
	}
	valid, err := s.deps.OTP.CheckCode(acc.Secret, code, time.Now())
	if err != nil {
		log.Error("otp check failed", logger.Err(err))
		return observe("update_push_id", start, resultFail(CodeInternalError, "otp engine failure"))
	}
	if !valid {
		return observe("update_push_id", start, resultFail(CodeInvalidOTP, "otp mismatch"))
	}

	oldPushID := acc.PushID
	err = s.deps.AuthRequests.WithSecondaryLock(ctx, oldPushID, func() error {
		req, found, err := s.deps.AuthRequests.GetBySecondaryKey(ctx, oldPushID)
		if err != nil || !found || req.Terminal() {
			return err
		}
		req.PushID = newPushID
		return s.deps.AuthRequests.Update(ctx, req)
	})
	if err != nil {
		log.Error("request re-index failed", logger.Err(err))
		return observe("update_push_id", start, resultFail(CodeInternalError, "store unavailable"))
	}

	acc.PushID = newPushID
	if err := s.deps.Accounts.Update(ctx, acc); err != nil {
		log.Error("account update failed", logger.Err(err))
		return observe("update_push_id", start, resultFail(CodeInternalError, "account store unavailable"))
	}
	log.Info("push id rotated", logger.PushID(newPushID))
	return observe("update_push_id", start, resultOK())
}

// ─── Token validation ───

// ValidateToken valida un código OTP de un usuario: primero como TOTP
// contra cada cuenta, después como scratch code. Un scratch code que
// matchea se consume (single use).
func (s *Service) ValidateToken(ctx context.Context, username, token string) ValidationResult {
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("push"), logger.Op("validate_token"), logger.Username(username))

	code, ok := parseOTP(token)
	if !ok {
		return observe("validate_token", start, resultFail(CodeInvalidOTPFormat, "token must be numeric"))
	}

	accs, err := s.deps.Accounts.FindByUsername(ctx, username)
	if err != nil {
		log.Error("account lookup failed", logger.Err(err))
		return observe("validate_token", start, resultFail(CodeInternalError, "account store unavailable"))
	}
	if len(accs) == 0 {
		return observe("validate_token", start, resultFail(CodeDeviceNotFound, "no accounts for user"))
	}

	now := time.Now()
	for i := range accs {
		valid, err := s.deps.OTP.CheckCode(accs[i].Secret, code, now)
		if err != nil {
			log.Error("otp check failed", logger.Err(err))
			return observe("validate_token", start, resultFail(CodeInternalError, "otp engine failure"))
		}
		if valid {
			metrics.OTPValidations.WithLabelValues("valid").Inc()
			return observe("validate_token", start, resultOK())
		}
	}

	// Scratch codes: igualdad textual, se consumen al primer uso.
	for i := range accs {
		for j, sc := range accs[i].ScratchCodes {
			if sc != token {
				continue
			}
			acc := accs[i]
			acc.ScratchCodes = append(acc.ScratchCodes[:j:j], acc.ScratchCodes[j+1:]...)
			if err := s.deps.Accounts.Update(ctx, &acc); err != nil {
				log.Error("scratch consumption failed", logger.Err(err))
				return observe("validate_token", start, resultFail(CodeInternalError, "account store unavailable"))
			}
			metrics.OTPValidations.WithLabelValues("scratch").Inc()
			log.Info("scratch code consumed")
			return observe("validate_token", start, resultOK())
		}
	}

	metrics.OTPValidations.WithLabelValues("invalid").Inc()
	return observe("validate_token", start, resultFail(CodeInvalidOTP, "token mismatch"))
}

// ValidateCredential es la compuerta final del lado del host: el OTP debe
// ser válido para el usuario y su request push debe estar APPROVED. Un
// request PENDING, REJECTED o inexistente deja la credencial inválida.
func (s *Service) ValidateCredential(ctx context.Context, username, token string) ValidationResult {
	start := time.Now()
	log := logger.From(ctx).With(logger.Layer("push"), logger.Op("validate_credential"), logger.Username(username))

	if res := s.ValidateToken(ctx, username, token); !res.Success {
		return observe("validate_credential", start, res)
	}

	accs, err := s.deps.Accounts.FindByUsername(ctx, username)
	if err != nil {
		log.Error("account lookup failed", logger.Err(err))
		return observe("validate_credential", start, resultFail(CodeInternalError, "account store unavailable"))
	}
	for i := range accs {
		if !accs[i].PushCapable() {
			continue
		}
		rec, found, err := s.deps.AuthRequests.GetBySecondaryKey(ctx, accs[i].PushID)
		if err != nil || !found {
			continue
		}
		if rec.Status == types.PushApproved {
			log.Info("credential approved", logger.AuthRequestID(rec.RequestID))
			return observe("validate_credential", start, resultOK())
		}
	}
	return observe("validate_credential", start, resultFail(CodeRequestNotFound, "no approved push request"))
}

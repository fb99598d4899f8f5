// Package controllers mapea requests HTTP a llamadas del orquestador.
package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/authpush/internal/domain/types"
	"github.com/dropDatabas3/authpush/internal/http/dto"
	apperrors "github.com/dropDatabas3/authpush/internal/http/errors"
	"github.com/dropDatabas3/authpush/internal/observability/logger"
	"github.com/dropDatabas3/authpush/internal/push"
	"github.com/dropDatabas3/authpush/internal/rate"
)

// Pinger es lo mínimo que el health check necesita de un backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PushController expone las operaciones del orquestador.
type PushController struct {
	svc      *push.Service
	backends map[string]Pinger
	limiter  rate.Limiter
}

// NewPushController crea el controller. backends alimenta el health check
// (clave = nombre del backend). limiter puede ser nil para deshabilitar
// el throttling de initiate.
func NewPushController(svc *push.Service, backends map[string]Pinger, limiter rate.Limiter) *PushController {
	return &PushController{svc: svc, backends: backends, limiter: limiter}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apperrors.WriteError(w, apperrors.ErrBadRequest.WithCause(err))
		return false
	}
	return true
}

// appError traduce el resultado del orquestador al catálogo HTTP.
func appError(res push.ValidationResult) *apperrors.AppError {
	switch res.Code {
	case push.CodeDeviceNotFound:
		return apperrors.ErrDeviceNotFound.WithDetail(res.Message)
	case push.CodeRequestNotFound:
		return apperrors.ErrRequestNotFound.WithDetail(res.Message)
	case push.CodeInvalidOTPFormat:
		return apperrors.ErrInvalidOTPFormat.WithDetail(res.Message)
	case push.CodeInvalidOTP:
		return apperrors.ErrInvalidOTP.WithDetail(res.Message)
	case push.CodeInvalidChallengeResponse:
		return apperrors.ErrInvalidChallengeResponse.WithDetail(res.Message)
	default:
		return apperrors.ErrInternalServerError.WithDetail(res.Message)
	}
}

func writeResult(w http.ResponseWriter, res push.ValidationResult) {
	if !res.Success {
		apperrors.WriteError(w, appError(res))
		return
	}
	writeJSON(w, http.StatusOK, dto.ResultResponse{
		Success: true,
		Code:    string(res.Code),
	})
}

// Initiate maneja POST /push/initiate.
func (c *PushController) Initiate(w http.ResponseWriter, r *http.Request) {
	var req dto.InitiateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" {
		apperrors.WriteError(w, apperrors.ErrBadRequest.WithDetail("username is required"))
		return
	}
	if c.limiter != nil {
		lim, err := c.limiter.Allow(r.Context(), req.Username)
		if err != nil {
			// limiter roto no debe tirar el login, solo se loguea
			logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
		} else if !lim.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(lim.RetryAfter.Seconds())))
			apperrors.WriteError(w, apperrors.ErrTooManyRequests)
			return
		}
	}

	ini, res := c.svc.InitiatePushAuthentication(r.Context(), req.Username)
	if !res.Success {
		apperrors.WriteError(w, appError(res))
		return
	}
	writeJSON(w, http.StatusOK, dto.InitiateResponse{
		RequestID:  ini.RequestID,
		PushID:     ini.PushID,
		Prompt:     ini.Prompt,
		ValidUntil: ini.ValidUntil,
	})
}

// CheckLogin maneja GET /push/check/login?push_id=...
func (c *PushController) CheckLogin(w http.ResponseWriter, r *http.Request) {
	pushID := r.URL.Query().Get("push_id")
	if pushID == "" {
		apperrors.WriteError(w, apperrors.ErrBadRequest.WithDetail("push_id is required"))
		return
	}
	status := c.svc.CheckPushAuthenticationStatus(r.Context(), pushID)
	writeJSON(w, http.StatusOK, dto.StatusResponse{Status: string(status)})
}

// CheckRegistration maneja GET /push/check/registration?request_id=...
func (c *PushController) CheckRegistration(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		apperrors.WriteError(w, apperrors.ErrBadRequest.WithDetail("request_id is required"))
		return
	}
	status := c.svc.CheckRegistrationStatus(r.Context(), requestID)
	writeJSON(w, http.StatusOK, dto.StatusResponse{Status: string(status)})
}

// Submit maneja POST /push/submit (callback del dispositivo) y
// POST /push/validate (validación desde el host server). Ambos caminos
// ejecutan la misma transición.
func (c *PushController) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitRequest
	if !decode(w, r, &req) {
		return
	}
	if req.PushID == "" {
		apperrors.WriteError(w, apperrors.ErrBadRequest.WithDetail("push_id is required"))
		return
	}
	writeResult(w, c.svc.ValidatePushAuthentication(r.Context(), req.PushID, req.OTP, req.ChallengeResponse))
}

// Terminate maneja POST /push/terminate.
func (c *PushController) Terminate(w http.ResponseWriter, r *http.Request) {
	var req dto.TerminateRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, c.svc.TerminatePushAuthentication(r.Context(), req.PushID, req.OTP))
}

// PushIDChange maneja POST /push/push-id-change.
func (c *PushController) PushIDChange(w http.ResponseWriter, r *http.Request) {
	var req dto.PushIDChangeRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, c.svc.UpdatePushID(r.Context(), req.DeviceKeyID, req.NewPushID, req.OTP))
}

// CreateRegistration maneja POST /push/registration.
func (c *PushController) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRegistrationRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" {
		apperrors.WriteError(w, apperrors.ErrBadRequest.WithDetail("username is required"))
		return
	}

	ticket, res := c.svc.CreateRegistration(r.Context(), req.Username)
	if !res.Success {
		apperrors.WriteError(w, appError(res))
		return
	}
	writeJSON(w, http.StatusCreated, dto.CreateRegistrationResponse{
		RequestID:      ticket.RequestID,
		Secret:         ticket.Secret,
		ValidationCode: ticket.ValidationCode,
		ScratchCodes:   ticket.ScratchCodes,
		AuthURL:        ticket.AuthURL,
		ValidUntil:     ticket.ValidUntil,
	})
}

// RegisterDevice maneja POST /push/registration/device. El whitelist de
// device type se aplica acá, antes de llegar al orquestador.
func (c *PushController) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterDeviceRequest
	if !decode(w, r, &req) {
		return
	}
	devType := types.DeviceType(req.DeviceType)
	if !devType.IsValid() {
		apperrors.WriteError(w, apperrors.ErrInvalidDeviceType)
		return
	}
	writeResult(w, c.svc.RegisterDevice(r.Context(), push.RegisterDeviceInput{
		EncodedSecret: req.EncodedSecret,
		DeviceName:    req.DeviceName,
		DeviceType:    devType,
		PushID:        req.PushID,
		DeviceKeyID:   req.DeviceKeyID,
		InitialCode:   req.InitialCode,
	}))
}

// FinalizeRegistration maneja POST /push/registration/finalize.
func (c *PushController) FinalizeRegistration(w http.ResponseWriter, r *http.Request) {
	var req dto.FinalizeRegistrationRequest
	if !decode(w, r, &req) {
		return
	}
	acc, res := c.svc.FinalizeRegistration(r.Context(), req.RequestID)
	if !res.Success {
		apperrors.WriteError(w, appError(res))
		return
	}
	writeJSON(w, http.StatusOK, dto.FinalizeRegistrationResponse{
		AccountID: acc.ID,
		Username:  acc.Username,
	})
}

// ValidateToken maneja POST /otp/validate.
func (c *PushController) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateTokenRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, c.svc.ValidateToken(r.Context(), req.Username, req.Token))
}

// CreateCredentials maneja POST /otp/credentials: el host server pide
// material OTP fresco sin abrir un registro.
func (c *PushController) CreateCredentials(w http.ResponseWriter, r *http.Request) {
	key, err := c.svc.CreateCredentials(r.Context())
	if err != nil {
		apperrors.WriteError(w, apperrors.ErrInternalServerError.WithCause(err))
		return
	}
	writeJSON(w, http.StatusCreated, dto.CreateCredentialsResponse{
		Secret:         key.Secret,
		ValidationCode: key.ValidationCode,
		ScratchCodes:   key.ScratchCodes,
	})
}

// ValidateCredential maneja POST /otp/credential: OTP válido más push
// request APPROVED.
func (c *PushController) ValidateCredential(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateTokenRequest
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, c.svc.ValidateCredential(r.Context(), req.Username, req.Token))
}

// Health maneja GET /healthz.
func (c *PushController) Health(w http.ResponseWriter, r *http.Request) {
	resp := dto.HealthResponse{Status: "ok", Backends: map[string]string{}}
	status := http.StatusOK
	for name, p := range c.backends {
		if err := p.Ping(r.Context()); err != nil {
			resp.Backends[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Backends[name] = "ok"
	}
	writeJSON(w, status, resp)
}

package controller

import (
	"errors"
	"net/http"

	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/service/receiver"
	"github.com/sharetube/camwall/internal/service/scheduler"
	"github.com/sharetube/camwall/pkg/rest"
)

func (c controller) getState(w http.ResponseWriter, r *http.Request) {
	st, ok := c.publisher.Last()
	if !ok {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "no state published yet"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, st)
}

func (c controller) postCommand(w http.ResponseWriter, r *http.Request) {
	var input commandInput
	if err := rest.ReadJSON(w, r, &input); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read command", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(r.Context(), "invalid command", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	cmd, err := c.buildCommand(input)
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to build command", "error", err)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": err.Error()})
		return
	}

	outcome, err := c.receiver.Accept(r.Context(), httpChannel, cmd)
	status := commandStatus(outcome, err)

	resp := rest.Envelope{"outcome": outcome, "ts": cmd.TS}
	if err != nil {
		resp["error"] = err.Error()
	}

	rest.WriteJSON(w, status, resp)
}

func commandStatus(outcome receiver.Outcome, err error) int {
	switch outcome {
	case receiver.OutcomeApplied:
		return http.StatusOK
	case receiver.OutcomeDuplicate:
		return http.StatusConflict
	case receiver.OutcomeUntrusted:
		return http.StatusForbidden
	case receiver.OutcomeMalformed, receiver.OutcomeIgnored:
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, scheduler.ErrCamNotFound):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrSwitchGuarded), errors.Is(err, scheduler.ErrEmptyRotation):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrInvalidPayload), errors.Is(err, protocol.ErrUnknownCommand):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

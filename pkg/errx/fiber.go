package errx

import (
	"errors"

	"github.com/Abraxas-365/filesmile/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// HTTPErrorResponse is the body every rejected request carries
type HTTPErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	Type      string                 `json:"type"`
	Status    int                    `json:"status"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     string                 `json:"underlying_error,omitempty"`
}

// ToHTTPResponse converts an Error to an HTTPErrorResponse
func (e *Error) ToHTTPResponse() HTTPErrorResponse {
	return HTTPErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Type:    string(e.Type),
		Status:  e.HTTPStatus,
		Details: e.Details,
	}
}

// FiberErrorHandler converts returned errors into the JSON error envelope.
// Unclassified errors become a 500 and are logged with whatever operation
// context the error carries. debug exposes the underlying cause.
func FiberErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := c.GetRespHeader(fiber.HeaderXRequestID, c.Get(fiber.HeaderXRequestID))

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(HTTPErrorResponse{
				Error:     fe.Message,
				Code:      "HTTP_ERROR",
				Type:      string(TypeValidation),
				Status:    fe.Code,
				RequestID: requestID,
			})
		}

		var e *Error
		if !errors.As(err, &e) {
			e = Wrap(err, "An unexpected error occurred", TypeInternal)
			e.Code = "INTERNAL_ERROR"
		}

		fields := logx.Fields{
			"path":       c.Path(),
			"method":     c.Method(),
			"ip":         c.IP(),
			"request_id": requestID,
			"code":       e.Code,
		}
		for k, v := range e.Details {
			fields[k] = v
		}
		if e.HTTPStatus >= fiber.StatusInternalServerError {
			logx.WithFields(fields).WithError(err).Error("Request failed")
		} else {
			logx.WithFields(fields).Debugf("Request rejected: %s", e.Message)
		}

		body := e.ToHTTPResponse()
		body.RequestID = requestID
		if debug && e.Err != nil {
			body.Cause = e.Err.Error()
		}
		if !debug && e.HTTPStatus >= fiber.StatusInternalServerError && e.Type == TypeInternal {
			body.Details = nil
		}
		if e.HTTPStatus == fiber.StatusUnauthorized {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}
		return c.Status(e.HTTPStatus).JSON(body)
	}
}

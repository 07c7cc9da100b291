package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MsgInvalidJSON is returned when a request body cannot be decoded.
const MsgInvalidJSON = "Invalid JSON body"

// MessageProvider is implemented by request bodies that name the message
// for each failed rule. Keys are "<json field>.<validator tag>".
type MessageProvider interface {
	ValidationMessages() map[string]string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

type bodyKey[T any] struct{}

// ValidateBody returns a middleware that decodes the JSON body into T,
// validates it and stores it in the request context. Failures answer
// 400 with every failed rule's message, in field order.
func ValidateBody[T any]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, messages, status := DecodeAndValidate[T](r)
			if messages != nil {
				WriteMessages(w, status, messages...)
				return
			}

			ctx := context.WithValue(r.Context(), bodyKey[T]{}, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BodyFromContext returns the body stored by ValidateBody[T].
func BodyFromContext[T any](ctx context.Context) (*T, bool) {
	body, ok := ctx.Value(bodyKey[T]{}).(*T)
	return body, ok
}

// DecodeAndValidate decodes r's JSON body into a T and validates it.
// On failure it returns the client messages and the HTTP status to use.
func DecodeAndValidate[T any](r *http.Request) (*T, []string, int) {
	body := new(T)

	if r.Body == nil {
		return nil, []string{MsgInvalidJSON}, http.StatusBadRequest
	}

	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, []string{"Request body too large"}, http.StatusRequestEntityTooLarge
		}
		if !errors.Is(err, io.EOF) {
			return nil, []string{MsgInvalidJSON}, http.StatusBadRequest
		}
		// An empty body validates as an empty object.
	}

	if messages := ValidationMessages(body); len(messages) > 0 {
		return nil, messages, http.StatusBadRequest
	}

	return body, nil, http.StatusOK
}

// ValidationMessages validates v and returns one message per failed rule.
func ValidationMessages(v any) []string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{"Invalid request"}
	}

	var table map[string]string
	if p, ok := v.(MessageProvider); ok {
		table = p.ValidationMessages()
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if msg, ok := table[fe.Field()+"."+fe.Tag()]; ok {
			messages = append(messages, msg)
			continue
		}
		messages = append(messages, fmt.Sprintf("%s is invalid", fe.Field()))
	}
	return messages
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/supabase/integrations/internal/api/apierrors"
	"github.com/supabase/integrations/internal/conf"
	"github.com/supabase/integrations/internal/utilities"
)

const maxFormMemory = 1 << 20

func addRequestID(globalConfig *conf.GlobalConfiguration) middlewareHandler {
	return func(w http.ResponseWriter, r *http.Request) (context.Context, error) {
		id := ""
		if globalConfig.API.RequestIDHeader != "" {
			id = r.Header.Get(globalConfig.API.RequestIDHeader)
		}
		if id == "" {
			uid := uuid.Must(uuid.NewV4())
			id = uid.String()
		}

		ctx := r.Context()
		ctx = utilities.WithRequestID(ctx, id)
		return ctx, nil
	}
}

// retrieveRequestParams decodes a JSON or form encoded body into params.
// Form fields are mapped onto the same JSON tags, first value wins.
func retrieveRequestParams[A any](r *http.Request, params *A) error {
	if utilities.IsFormRequest(r) {
		return retrieveFormParams(r, params)
	}

	body, err := utilities.GetBodyBytes(r)
	if err != nil {
		return apierrors.NewInternalServerError("Could not read body into byte slice").WithInternalError(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, params); err != nil {
		return apierrors.NewBadRequestError(apierrors.ErrorCodeBadJSON, "Could not parse request body as JSON: %v", err)
	}
	return nil
}

func retrieveFormParams[A any](r *http.Request, params *A) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return apierrors.NewBadRequestError(apierrors.ErrorCodeValidationFailed, "Could not parse form: %v", err)
	}

	fields := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return apierrors.NewInternalServerError("Could not encode form values").WithInternalError(err)
	}
	if err := json.Unmarshal(data, params); err != nil {
		return apierrors.NewBadRequestError(apierrors.ErrorCodeValidationFailed, "Could not parse form values: %v", err)
	}
	return nil
}

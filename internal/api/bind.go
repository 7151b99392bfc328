package api

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/judyrop/storefront-api/internal/auth"
	"github.com/judyrop/storefront-api/internal/schema"
	"github.com/judyrop/storefront-api/models"
)

// bindJSON validates the request body against schemaID and then decodes it
// into dst. Nothing is decoded when validation fails.
func (s *Server) bindJSON(c *gin.Context, schemaID string, dst interface{}) error {
	body, err := c.GetRawData()
	if err != nil {
		return &schema.ValidationError{Message: "unreadable request body"}
	}
	document, err := schema.DecodeJSON(body)
	if err != nil {
		return err
	}
	if err := s.validator.Validate(schemaID, document); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &schema.ValidationError{Message: "invalid value for " + typeErr.Field, Path: typeErr.Field}
		}
		return &schema.ValidationError{Message: "invalid value"}
	}
	return nil
}

// bindQuery validates the query string, first value per key, against schemaID.
func (s *Server) bindQuery(c *gin.Context, schemaID string) (map[string]string, error) {
	values := c.Request.URL.Query()
	flat := make(map[string]string, len(values))
	document := make(map[string]interface{}, len(values))
	for key, v := range values {
		flat[key] = v[0]
		document[key] = v[0]
	}
	if err := s.validator.Validate(schemaID, document); err != nil {
		return nil, err
	}
	return flat, nil
}

// currentUser returns the user placed in the request context by RequireLogin.
func currentUser(c *gin.Context) *models.User {
	id, ok := auth.FromContext(c.Request.Context())
	if !ok {
		return nil
	}
	return id.User
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return uint(id), nil
}

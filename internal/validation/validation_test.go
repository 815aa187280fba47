package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"complaintdesk/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userInput struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phoneNo" validate:"required,phone"`
}

type registerInput struct {
	User userInput `json:"user"`
}

func TestStruct_Valid(t *testing.T) {
	in := registerInput{User: userInput{
		FullName: "Nimal Perera", Email: "nimal@example.com", Password: "secret1", Phone: "+94 77-123 4567",
	}}
	assert.NoError(t, Struct(in))
}

func TestStruct_ReportsNestedJSONFieldNames(t *testing.T) {
	in := registerInput{User: userInput{FullName: "x", Email: "not-an-email", Password: "123", Phone: "abc"}}

	err := Struct(in)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)

	got := map[string]string{}
	for _, d := range appErr.Details {
		got[d.Field] = d.Message
	}
	assert.Equal(t, "Invalid email format", got["user.email"])
	assert.Equal(t, "Must be at least 6 characters", got["user.password"])
	assert.Equal(t, "Please provide a valid phone number", got["user.phoneNo"])
}

func TestBindJSON(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(apperr.KindOf(err).Status()).SendString(err.Error())
	}})
	app.Post("/", func(c *fiber.Ctx) error {
		var in userInput
		if err := BindJSON(c, &in); err != nil {
			return err
		}
		return c.SendString(in.Email)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"fullName":"A","email":"a@b.co","password":"secret1","phoneNo":"0771"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

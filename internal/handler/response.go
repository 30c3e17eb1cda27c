package handler

import (
    "github.com/labstack/echo/v4"
)

// Response is the envelope used for every JSON body, success or failure.
type Response struct {
    StatusCode int      `json:"statusCode"`
    Message    string   `json:"message"`
    Success    bool     `json:"success"`
    Data       any      `json:"data"`
    Errors     []string `json:"errors,omitempty"`
}

// respond writes data wrapped in the envelope; success follows the status.
func respond(c echo.Context, status int, message string, data any) error {
    return c.JSON(status, Response{
        StatusCode: status,
        Message:    message,
        Success:    status < 400,
        Data:       data,
    })
}

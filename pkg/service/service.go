package service

import (
	"context"
	"net/http"
)

type Requestor interface {
	Do(req *http.Request) (*http.Response, error)
}

type ExtHandler interface {
	Exists(ctx context.Context, url string) (bool, error)
}

type AuthHandler interface {
	Login(email string, password string) (string, error)
	ValidateToken(token string) error
}

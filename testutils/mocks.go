package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"
	gomail "github.com/wneessen/go-mail"
)

type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

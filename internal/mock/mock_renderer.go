package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/leak-analysis/internal/render"
)

// MockRenderer is a mock implementation of the render.Renderer interface.
type MockRenderer struct {
	mock.Mock
}

// Render mocks the Render method.
func (m *MockRenderer) Render(ctx context.Context, view render.View) (string, error) {
	args := m.Called(ctx, view)
	return args.String(0), args.Error(1)
}

// ExpectRender expects one render with the given title.
func (m *MockRenderer) ExpectRender(title, path string, err error) *mock.Call {
	return m.On("Render", mock.Anything, mock.MatchedBy(func(v render.View) bool {
		return v.Title == title
	})).Return(path, err)
}

// Views returns every view passed to Render, in call order.
func (m *MockRenderer) Views() []render.View {
	views := make([]render.View, 0, len(m.Calls))
	for _, call := range m.Calls {
		if call.Method == "Render" {
			views = append(views, call.Arguments.Get(1).(render.View))
		}
	}
	return views
}

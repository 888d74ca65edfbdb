package mocks

import (
	"context"

	"llama-stylist/internal/api"
	"llama-stylist/internal/scene"

	"github.com/stretchr/testify/mock"
)

// MockPatchResolver is a mock type for the PatchResolver type
type MockPatchResolver struct {
	mock.Mock
}

// ResolvePatch provides a mock function with given fields: ctx, doc, editText, options
func (_m *MockPatchResolver) ResolvePatch(ctx context.Context, doc scene.Document, editText string, options map[string]any) scene.Document {
	ret := _m.Called(ctx, doc, editText, options)

	var r0 scene.Document
	if rf, ok := ret.Get(0).(func(context.Context, scene.Document, string, map[string]any) scene.Document); ok {
		r0 = rf(ctx, doc, editText, options)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(scene.Document)
		}
	}

	return r0
}

// NewMockPatchResolver creates a new instance of MockPatchResolver. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockPatchResolver(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPatchResolver {
	m := &MockPatchResolver{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockStyleResolver is a mock type for the StyleResolver type
type MockStyleResolver struct {
	mock.Mock
}

// ResolveStyle provides a mock function with given fields: ctx, doc, targetStyle, options
func (_m *MockStyleResolver) ResolveStyle(ctx context.Context, doc scene.Document, targetStyle string, options map[string]any) scene.Document {
	ret := _m.Called(ctx, doc, targetStyle, options)

	var r0 scene.Document
	if rf, ok := ret.Get(0).(func(context.Context, scene.Document, string, map[string]any) scene.Document); ok {
		r0 = rf(ctx, doc, targetStyle, options)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(scene.Document)
		}
	}

	return r0
}

// NewMockStyleResolver creates a new instance of MockStyleResolver. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStyleResolver(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStyleResolver {
	m := &MockStyleResolver{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ api.PatchResolver = (*MockPatchResolver)(nil)
	_ api.StyleResolver = (*MockStyleResolver)(nil)
)

// Package mocks holds testify mocks of the domain interfaces.
package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"

	domain "github.com/Unreal-Works/roblox-coverage-patch/internal/domain"
)

// MockWorkflow is a mock type for the Workflow type.
type MockWorkflow struct {
	mock.Mock
}

// MockWorkflow_Expecter wraps MockWorkflow expectations with typed helpers.
type MockWorkflow_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expectation helpers.
func (_m *MockWorkflow) EXPECT() *MockWorkflow_Expecter {
	return &MockWorkflow_Expecter{mock: &_m.Mock}
}

// List provides a mock function with given fields: args.
func (_m *MockWorkflow) List(args domain.ListArgs) error {
	ret := _m.Called(args)

	rf, _ := ret.Get(0).(func(domain.ListArgs) error)
	if rf != nil {
		return rf(args)
	}

	return ret.Error(0)
}

// List is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) List(args interface{}) *mock.Call {
	return _e.mock.On("List", args)
}

// Instrument provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) Instrument(ctx context.Context, args domain.InstrumentArgs) error {
	ret := _m.Called(ctx, args)

	rf, _ := ret.Get(0).(func(context.Context, domain.InstrumentArgs) error)
	if rf != nil {
		return rf(ctx, args)
	}

	return ret.Error(0)
}

// Instrument is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) Instrument(ctx interface{}, args interface{}) *mock.Call {
	return _e.mock.On("Instrument", ctx, args)
}

// Run provides a mock function with given fields: ctx, args.
func (_m *MockWorkflow) Run(ctx context.Context, args domain.RunArgs) error {
	ret := _m.Called(ctx, args)

	rf, _ := ret.Get(0).(func(context.Context, domain.RunArgs) error)
	if rf != nil {
		return rf(ctx, args)
	}

	return ret.Error(0)
}

// Run is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) Run(ctx interface{}, args interface{}) *mock.Call {
	return _e.mock.On("Run", ctx, args)
}

// Report provides a mock function with given fields: args.
func (_m *MockWorkflow) Report(args domain.ReportArgs) error {
	ret := _m.Called(args)

	rf, _ := ret.Get(0).(func(domain.ReportArgs) error)
	if rf != nil {
		return rf(args)
	}

	return ret.Error(0)
}

// Report is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) Report(args interface{}) *mock.Call {
	return _e.mock.On("Report", args)
}

// Stats provides a mock function with given fields: args.
func (_m *MockWorkflow) Stats(args domain.StatsArgs) error {
	ret := _m.Called(args)

	rf, _ := ret.Get(0).(func(domain.StatsArgs) error)
	if rf != nil {
		return rf(args)
	}

	return ret.Error(0)
}

// Stats is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) Stats(args interface{}) *mock.Call {
	return _e.mock.On("Stats", args)
}

// View provides a mock function with given fields: args.
func (_m *MockWorkflow) View(args domain.ViewArgs) error {
	ret := _m.Called(args)

	rf, _ := ret.Get(0).(func(domain.ViewArgs) error)
	if rf != nil {
		return rf(args)
	}

	return ret.Error(0)
}

// View is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) View(args interface{}) *mock.Call {
	return _e.mock.On("View", args)
}

// Clean provides a mock function with given fields: args.
func (_m *MockWorkflow) Clean(args domain.CleanArgs) error {
	ret := _m.Called(args)

	rf, _ := ret.Get(0).(func(domain.CleanArgs) error)
	if rf != nil {
		return rf(args)
	}

	return ret.Error(0)
}

// Clean is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) Clean(args interface{}) *mock.Call {
	return _e.mock.On("Clean", args)
}

// NewMockWorkflow creates a new instance of MockWorkflow. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	mock := &MockWorkflow{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

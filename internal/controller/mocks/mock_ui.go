// Package mocks holds testify mocks of the controller interfaces.
package mocks

import (
	mock "github.com/stretchr/testify/mock"

	adapter "github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	controller "github.com/Unreal-Works/roblox-coverage-patch/internal/controller"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// MockUI is a mock type for the UI type.
type MockUI struct {
	mock.Mock
}

// MockUI_Expecter wraps MockUI expectations with typed helpers.
type MockUI_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expectation helpers.
func (_m *MockUI) EXPECT() *MockUI_Expecter {
	return &MockUI_Expecter{mock: &_m.Mock}
}

// Start provides a mock function with given fields: options.
func (_m *MockUI) Start(options ...controller.StartOption) error {
	ret := _m.Called(options)

	var r0 error
	if rf, ok := ret.Get(0).(func(...controller.StartOption) error); ok {
		r0 = rf(options...)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Start is a helper method to define mock.On call.
func (_e *MockUI_Expecter) Start(options interface{}) *mock.Call {
	return _e.mock.On("Start", options)
}

// Close provides a mock function with no fields.
func (_m *MockUI) Close() {
	_m.Called()
}

// Close is a helper method to define mock.On call.
func (_e *MockUI_Expecter) Close() *mock.Call {
	return _e.mock.On("Close")
}

// DisplayModules provides a mock function with given fields: rows, diagnostics.
func (_m *MockUI) DisplayModules(rows []controller.ModuleRow, diagnostics []m.Diagnostic) error {
	ret := _m.Called(rows, diagnostics)

	var r0 error
	if rf, ok := ret.Get(0).(func([]controller.ModuleRow, []m.Diagnostic) error); ok {
		r0 = rf(rows, diagnostics)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// DisplayModules is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayModules(rows interface{}, diagnostics interface{}) *mock.Call {
	return _e.mock.On("DisplayModules", rows, diagnostics)
}

// DisplayCoverage provides a mock function with given fields: summary, diagnostics.
func (_m *MockUI) DisplayCoverage(summary m.CoverageSummary, diagnostics []m.Diagnostic) error {
	ret := _m.Called(summary, diagnostics)

	var r0 error
	if rf, ok := ret.Get(0).(func(m.CoverageSummary, []m.Diagnostic) error); ok {
		r0 = rf(summary, diagnostics)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// DisplayCoverage is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayCoverage(summary interface{}, diagnostics interface{}) *mock.Call {
	return _e.mock.On("DisplayCoverage", summary, diagnostics)
}

// DisplayStats provides a mock function with given fields: stats.
func (_m *MockUI) DisplayStats(stats m.RuntimeStats) error {
	ret := _m.Called(stats)

	var r0 error
	if rf, ok := ret.Get(0).(func(m.RuntimeStats) error); ok {
		r0 = rf(stats)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// DisplayStats is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayStats(stats interface{}) *mock.Call {
	return _e.mock.On("DisplayStats", stats)
}

// DisplayRuns provides a mock function with given fields: runs.
func (_m *MockUI) DisplayRuns(runs []adapter.RunEntry) error {
	ret := _m.Called(runs)

	var r0 error
	if rf, ok := ret.Get(0).(func([]adapter.RunEntry) error); ok {
		r0 = rf(runs)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// DisplayRuns is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayRuns(runs interface{}) *mock.Call {
	return _e.mock.On("DisplayRuns", runs)
}

// DisplayMessage provides a mock function with given fields: format, args.
func (_m *MockUI) DisplayMessage(format string, args ...any) {
	_m.Called(format, args)
}

// DisplayMessage is a helper method to define mock.On call.
func (_e *MockUI_Expecter) DisplayMessage(format interface{}, args interface{}) *mock.Call {
	return _e.mock.On("DisplayMessage", format, args)
}

// NewMockUI creates a new instance of MockUI. It also registers a testing
// interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockUI(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUI {
	mock := &MockUI{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// Lenient sets up the calls every workflow makes on its way in and out, so a
// test only declares the display calls it cares about.
func (_m *MockUI) Lenient() *MockUI {
	_m.On("Start", mock.Anything).Return(nil).Maybe()
	_m.On("Close").Return().Maybe()
	_m.On("DisplayMessage", mock.Anything, mock.Anything).Return().Maybe()

	return _m
}

package packagemanager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	cm "github.com/pysetupops/pysetup/pysetup/commandmanager"
)

type MockCommandManager struct {
	mock.Mock
}

func (m *MockCommandManager) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	args := m.Called(ctx, config)
	return args.Get(0).(cm.CommandResult), args.Error(1)
}

func TestPipManagerImplementsPackageManager(t *testing.T) {
	assert.Implements(t, (*PackageManager)(nil), &PipManager{})
}

func TestUpgradePackagingTools(t *testing.T) {
	mockManager := new(MockCommandManager)
	pip := PipManager{Python: "/usr/bin/python3", CommandManager: mockManager}

	mockManager.On("Run", mock.Anything, cm.CommandConfig{
		Command: "/usr/bin/python3",
		Args:    []string{"-m", "pip", "install", "--upgrade", "pip", "setuptools", "wheel"},
	}).Return(cm.CommandResult{ExitCode: 0}, nil)

	err := pip.UpgradePackagingTools(context.Background())
	assert.Nil(t, err)
	mockManager.AssertExpectations(t)
}

func TestInstallRequirements(t *testing.T) {
	mockManager := new(MockCommandManager)
	pip := PipManager{Python: "/usr/bin/python3", CommandManager: mockManager}

	mockManager.On("Run", mock.Anything, cm.CommandConfig{
		Command: "/usr/bin/python3",
		Args:    []string{"-m", "pip", "install", "--only-binary=:all:", "--no-build-isolation", "-r", "requirements.txt"},
	}).Return(cm.CommandResult{ExitCode: 0}, nil)

	err := pip.InstallRequirements(context.Background(), "requirements.txt")
	assert.Nil(t, err)
	mockManager.AssertExpectations(t)
}

func TestInstallRequirementsFailure(t *testing.T) {
	mockManager := new(MockCommandManager)
	pip := PipManager{Python: "python3", CommandManager: mockManager}

	mockManager.On("Run", mock.Anything, mock.Anything).
		Return(cm.CommandResult{ExitCode: 1}, errors.New("exit status 1"))

	err := pip.InstallRequirements(context.Background(), "requirements.txt")
	assert.Error(t, err)

	var pipErr *PipError
	assert.True(t, errors.As(err, &pipErr))
	assert.Equal(t, 1, pipErr.ExitStatus())
	assert.Equal(t, "install", pipErr.Op)
}

func TestListPackages(t *testing.T) {
	mockManager := new(MockCommandManager)
	pip := PipManager{Python: "python3", CommandManager: mockManager}

	mockManager.On("Run", mock.Anything, cm.CommandConfig{
		Command: "python3",
		Args:    []string{"-m", "pip", "list", "--format=freeze"},
	}).Return(cm.CommandResult{STDOUT: "requests==2.31.0\nweb3==6.11.0\n"}, nil)

	packages, err := pip.ListPackages(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, []string{"requests==2.31.0", "web3==6.11.0"}, packages)
}

func TestCheckOutdatedEmpty(t *testing.T) {
	mockManager := new(MockCommandManager)
	pip := PipManager{Python: "python3", CommandManager: mockManager}

	mockManager.On("Run", mock.Anything, cm.CommandConfig{
		Command: "python3",
		Args:    []string{"-m", "pip", "list", "--outdated", "--format=freeze"},
	}).Return(cm.CommandResult{STDOUT: "\n"}, nil)

	outdated, err := pip.CheckOutdated(context.Background())
	assert.Nil(t, err)
	assert.Empty(t, outdated)
}

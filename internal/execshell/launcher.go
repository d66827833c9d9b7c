package execshell

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

const (
	shellEnvironmentVariableConstant = "SHELL"
	defaultShellConstant             = "sh"
	windowsShellConstant             = "powershell"
	windowsOperatingSystemConstant   = "windows"
	shellCommandFlagConstant         = "-c"
	readBufferBytesConstant          = 64 * 1024
	lineTerminatorConstant           = '\n'
	fallbackTerminalColumnsConstant  = 80
	fallbackTerminalRowsConstant     = 24
)

// TerminalSizer reports the window size handed to new pseudo-terminals. A nil size
// leaves the pseudo-terminal at its default dimensions.
type TerminalSizer func() *pty.Winsize

// SystemLauncher spawns command lines through the user's shell.
type SystemLauncher struct {
	shellPath     string
	terminalSizer TerminalSizer
}

// NewSystemLauncher builds a launcher for shellPath. An empty shellPath selects $SHELL,
// falling back to sh, or powershell on Windows.
func NewSystemLauncher(shellPath string) *SystemLauncher {
	return &SystemLauncher{
		shellPath:     ResolveShell(shellPath),
		terminalSizer: StandardOutputSize,
	}
}

// WithTerminalSizer replaces the window size source for pseudo-terminals.
func (launcher *SystemLauncher) WithTerminalSizer(terminalSizer TerminalSizer) *SystemLauncher {
	launcher.terminalSizer = terminalSizer
	return launcher
}

// ShellPath reports the shell used to interpret command lines.
func (launcher *SystemLauncher) ShellPath() string {
	return launcher.shellPath
}

// Attach runs commandLine with its standard streams connected to streams.
func (launcher *SystemLauncher) Attach(executionContext context.Context, commandLine string, streams StreamSet) (ExecutionResult, error) {
	command := launcher.command(executionContext, commandLine)
	if streams.Input != nil {
		command.Stdin = streams.Input
	}
	if streams.Output != nil {
		command.Stdout = streams.Output
	}
	if streams.Error != nil {
		command.Stderr = streams.Error
	}
	if startError := command.Start(); startError != nil {
		return ExecutionResult{}, startError
	}
	return exitResult(command.Wait())
}

// Capture runs commandLine behind a pseudo-terminal and feeds every output line to
// consumer. Lines have no length limit. Output keeps being drained after a consumer failure so the child never
// blocks on a full terminal buffer.
func (launcher *SystemLauncher) Capture(executionContext context.Context, commandLine string, consumer LineConsumer) (ExecutionResult, error) {
	command := launcher.command(executionContext, commandLine)
	var windowSize *pty.Winsize
	if launcher.terminalSizer != nil {
		windowSize = launcher.terminalSizer()
	}

	terminal, startError := pty.StartWithSize(command, windowSize)
	if startError != nil {
		return ExecutionResult{}, startError
	}
	defer terminal.Close()

	reader := bufio.NewReaderSize(terminal, readBufferBytesConstant)
	var consumerError error
	var readError error
	for readError == nil {
		var line string
		line, readError = reader.ReadString(lineTerminatorConstant)
		if len(line) == 0 || consumerError != nil {
			continue
		}
		consumerError = consumer(trimLineEnding(line))
	}
	streamFailed := !errors.Is(readError, io.EOF) && !isTerminalClosed(readError)
	if streamFailed {
		_, _ = io.Copy(io.Discard, terminal)
	}

	executionResult, waitError := exitResult(command.Wait())
	if streamFailed {
		return ExecutionResult{}, StreamError{Cause: readError}
	}
	if consumerError != nil {
		return ExecutionResult{}, consumerError
	}
	return executionResult, waitError
}

// trimLineEnding drops the newline and the carriage return the terminal adds before it.
func trimLineEnding(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

func (launcher *SystemLauncher) command(executionContext context.Context, commandLine string) *exec.Cmd {
	return exec.CommandContext(executionContext, launcher.shellPath, shellCommandFlagConstant, commandLine)
}

// ResolveShell picks the shell binary used for command lines.
func ResolveShell(configuredShell string) string {
	if len(configuredShell) > 0 {
		return configuredShell
	}
	if runtime.GOOS == windowsOperatingSystemConstant {
		return windowsShellConstant
	}
	if environmentShell := os.Getenv(shellEnvironmentVariableConstant); len(environmentShell) > 0 {
		return environmentShell
	}
	return defaultShellConstant
}

// StandardOutputSize returns the window size of standard output, or 80x24 when standard
// output is not a terminal.
func StandardOutputSize() *pty.Winsize {
	return FileTerminalSize(os.Stdout)
}

// FileTerminalSize returns the window size of file, or 80x24 when file is not a terminal.
func FileTerminalSize(file *os.File) *pty.Winsize {
	fallback := &pty.Winsize{Rows: fallbackTerminalRowsConstant, Cols: fallbackTerminalColumnsConstant}
	if file == nil {
		return fallback
	}
	fileDescriptor := int(file.Fd())
	if !term.IsTerminal(fileDescriptor) {
		return fallback
	}
	columns, rows, sizeError := term.GetSize(fileDescriptor)
	if sizeError != nil || columns <= 0 || rows <= 0 {
		return fallback
	}
	return &pty.Winsize{Rows: uint16(rows), Cols: uint16(columns)}
}

func exitResult(waitError error) (ExecutionResult, error) {
	if waitError == nil {
		return ExecutionResult{ExitCode: 0}, nil
	}
	var exitError *exec.ExitError
	if errors.As(waitError, &exitError) {
		return ExecutionResult{ExitCode: exitError.ExitCode()}, nil
	}
	return ExecutionResult{}, waitError
}

// Reading a pseudo-terminal whose child has exited fails with EIO on Linux.
func isTerminalClosed(readError error) bool {
	return errors.Is(readError, syscall.EIO) || errors.Is(readError, os.ErrClosed)
}

// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	statusIndent = 4  // spaces before a status arrow
	listIndent   = 2  // spaces before list bullets
	titleRule    = 12 // width of the rule around titles
)

// 🎯 Logger prints operator-facing progress and mirrors it into zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 📝 Header logs the banner for a run
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("saltext-migrate")
	fmt.Fprintf(l.console, "\n%s %s\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Status logs the start of a migration step
func (l *Logger) Status(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "\n%s%s\n", strings.Repeat(" ", statusIndent), color.New(color.Bold, color.FgGreen).Sprint("→ "+msg))
	l.zlog.Info().Str("step", msg).Msg("status")
}

// 📝 Warn logs a highlighted header with an optional body
func (l *Logger) Warn(header, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "\n%s\n", color.New(color.Bold, color.BgRed).Sprint(header))
	if message != "" {
		fmt.Fprintln(l.console, message)
	}
	l.zlog.Warn().Str("detail", message).Msg(header)
}

// 📝 Info logs an informational message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console, color.New(color.Bold, color.FgYellow).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 MainTitle logs the top-level summary title
func (l *Logger) MainTitle(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rule := strings.Repeat("=", titleRule)
	fmt.Fprintf(l.console, "\n\n\n%s\n", color.New(color.Bold, color.BgYellow, color.FgBlack).Sprintf("%s  %s  %s", rule, msg, rule))
}

// 📝 Title logs a section title, in red when warn is set
func (l *Logger) Title(msg string, warn bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rule := strings.Repeat("-", titleRule)
	c := color.New(color.Bold, color.BgYellow, color.FgBlack)
	if warn {
		c = color.New(color.Bold, color.BgRed)
	}
	fmt.Fprintf(l.console, "\n\n%s\n", c.Sprintf("%s  %s  %s", rule, msg, rule))
}

// 📝 Line logs a summary line, in red when warn is set
func (l *Logger) Line(msg string, warn bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if warn {
		msg = color.New(color.Bold, color.FgRed).Sprint(msg)
	}
	fmt.Fprintln(l.console, msg)
}

// 📝 Write prints raw pre-rendered output such as tables
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.console.Write(p)
}

// RenderList renders items as an indented bullet list
func RenderList(items []string, bullet string, indent int) string {
	if indent < 0 {
		indent = listIndent
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Repeat(" ", indent))
		b.WriteString(bullet)
		b.WriteString(" ")
		b.WriteString(item)
	}
	return b.String()
}

// RenderGroups renders a key => values mapping, both levels sorted
func RenderGroups(groups map[string][]string, indent int) string {
	if indent < 0 {
		indent = listIndent
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s=> %s:\n", strings.Repeat(" ", indent), k)
		vals := append([]string(nil), groups[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			fmt.Fprintf(&b, "%s• %s\n", strings.Repeat(" ", indent+2), v)
		}
	}
	return b.String()
}

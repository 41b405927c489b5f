// Package sample is wrapped by the gowrap tests.
package sample

import (
	"errors"
	"strings"
	"time"
)

type Counter struct {
	Name    string
	Count   int32
	Ratio   float64
	Tags    []string
	Enabled bool
	Every   time.Duration
	Parent  *Counter
	hidden  int
}

func (c *Counter) Add(n int) int32 {
	c.Count += int32(n)
	return c.Count
}

func (c *Counter) Reset() { c.Count = 0 }

func (c *Counter) Check() error {
	if c.Count < 0 {
		return errors.New("negative count")
	}
	return nil
}

func (c *Counter) Label(prefix string) (string, error) {
	if prefix == "" {
		return "", errors.New("empty prefix")
	}
	return prefix + c.Name, nil
}

func (c *Counter) Words() []string { return strings.Fields(c.Name) }

func (c *Counter) Sum(xs ...int) int { return len(xs) }

func (c *Counter) Clone() *Counter { return &Counter{Name: c.Name} }

// Limit is not a struct.
type Limit int

func Double(n int) int { return 2 * n }

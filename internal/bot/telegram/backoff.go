package telegram

import "time"

// IdleBackoff - интервал между пустыми опросами, растет линейно до потолка.
type IdleBackoff struct {
	min     time.Duration
	step    time.Duration
	max     time.Duration
	current time.Duration
}

func NewIdleBackoff(minDelay, step, maxDelay time.Duration) *IdleBackoff {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	return &IdleBackoff{
		min:     minDelay,
		step:    step,
		max:     maxDelay,
		current: minDelay,
	}
}

// Next возвращает текущую паузу и увеличивает следующую на шаг.
func (b *IdleBackoff) Next() time.Duration {
	d := b.current

	b.current += b.step
	if b.current > b.max {
		b.current = b.max
	}

	return d
}

func (b *IdleBackoff) Reset() {
	b.current = b.min
}

func (b *IdleBackoff) Min() time.Duration {
	return b.min
}

// FailureBackoff - пауза после n подряд неудачных опросов: min(n*step, max).
type FailureBackoff struct {
	Step time.Duration
	Max  time.Duration
}

func (b FailureBackoff) Delay(failures int) time.Duration {
	if failures < 1 {
		return 0
	}

	if b.Step > 0 && time.Duration(failures) > b.Max/b.Step {
		return b.Max
	}

	d := time.Duration(failures) * b.Step
	if d > b.Max {
		return b.Max
	}

	return d
}

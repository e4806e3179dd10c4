package utils

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"go.viam.com/test"
	gutils "go.viam.com/utils"
)

func TestRunInParallel(t *testing.T) {
	wait100ms := func(ctx context.Context) error {
		gutils.SelectContextOrWait(ctx, 100*time.Millisecond)
		return ctx.Err()
	}

	elapsed, err := RunInParallel(context.Background(), []SimpleFunc{wait100ms, wait100ms})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, elapsed, test.ShouldBeLessThan, 190*time.Millisecond)
	test.That(t, elapsed, test.ShouldBeGreaterThan, 90*time.Millisecond)

	errFunc := func(ctx context.Context) error {
		return errors.New("bad")
	}

	elapsed, err = RunInParallel(context.Background(), []SimpleFunc{wait100ms, wait100ms, errFunc})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad")
	test.That(t, elapsed, test.ShouldBeLessThan, 90*time.Millisecond)

	panicFunc := func(ctx context.Context) error {
		panic(1)
	}

	_, err = RunInParallel(context.Background(), []SimpleFunc{panicFunc})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "panic")
}

func TestGetInParallel(t *testing.T) {
	constant := func(v float64) FloatFunc {
		return func(ctx context.Context) (float64, error) {
			return v, nil
		}
	}
	_, values, err := GetInParallel(context.Background(), []FloatFunc{constant(1), constant(2), constant(3)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, values, test.ShouldResemble, []float64{1, 2, 3})

	failing := func(ctx context.Context) (float64, error) {
		return 0, errors.New("no corners")
	}
	_, _, err = GetInParallel(context.Background(), []FloatFunc{constant(1), failing})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParallelForEachPixel(t *testing.T) {
	for _, size := range []image.Point{{0, 0}, {1, 1}, {3, 97}, {640, 3}, {33, 17}} {
		visits := make([]int32, size.X*size.Y)
		ParallelForEachPixel(size, func(x, y int) {
			atomic.AddInt32(&visits[y*size.X+x], 1)
		})
		for _, v := range visits {
			test.That(t, v, test.ShouldEqual, int32(1))
		}
	}
}

func TestParallelForEachRow(t *testing.T) {
	var total int64
	ParallelForEachRow(1000, func(y int) {
		atomic.AddInt64(&total, int64(y))
	})
	test.That(t, total, test.ShouldEqual, int64(999*1000/2))
}

func TestMathHelpers(t *testing.T) {
	test.That(t, ClampF64(-1, 0, 1), test.ShouldEqual, 0.0)
	test.That(t, ClampF64(2, 0, 1), test.ShouldEqual, 1.0)
	test.That(t, MinInt(2, 5), test.ShouldEqual, 2)
	test.That(t, MaxInt(2, 5), test.ShouldEqual, 5)
}

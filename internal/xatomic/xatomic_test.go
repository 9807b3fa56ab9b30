package xatomic

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInt64(t *testing.T) {
	Convey("Given a counter starting at 0", t, func() {
		c := NewInt64(0)

		Convey("Add accumulates and Load reflects it", func() {
			c.Add(5)
			c.Add(-2)
			So(c.Load(), ShouldEqual, 3)
		})

		Convey("Store overwrites the current value", func() {
			c.Add(100)
			c.Store(7)
			So(c.Load(), ShouldEqual, 7)
		})

		Convey("Concurrent adds are not lost", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					c.Add(1)
				}()
			}
			wg.Wait()
			So(c.Load(), ShouldEqual, 100)
		})
	})
}

func TestFloat64(t *testing.T) {
	Convey("Given a float counter starting at 1.5", t, func() {
		f := NewFloat64(1.5)

		Convey("Add returns the running total", func() {
			total := f.Add(2.5)
			So(total, ShouldEqual, 4.0)
			So(f.Load(), ShouldEqual, 4.0)
		})

		Convey("Store overwrites the value", func() {
			f.Store(9.25)
			So(f.Load(), ShouldEqual, 9.25)
		})

		Convey("Concurrent adds sum correctly", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					f.Add(0.5)
				}()
			}
			wg.Wait()
			So(f.Load(), ShouldEqual, 1.5+25.0)
		})
	})
}

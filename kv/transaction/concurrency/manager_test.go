package concurrency

import (
	"sync"
	"testing"

	. "github.com/pingcap/check"
)

func TestT(t *testing.T) {
	TestingT(t)
}

var _ = Suite(&testManagerSuite{})

type testManagerSuite struct{}

func (s *testManagerSuite) TestUpdateMaxTS(c *C) {
	m := NewManager(10)
	c.Assert(m.MaxTS(), Equals, uint64(10))

	m.UpdateMaxTS(5)
	c.Assert(m.MaxTS(), Equals, uint64(10))

	m.UpdateMaxTS(20)
	c.Assert(m.MaxTS(), Equals, uint64(20))

	m.UpdateMaxTS(20)
	c.Assert(m.MaxTS(), Equals, uint64(20))
}

func (s *testManagerSuite) TestConcurrentUpdate(c *C) {
	m := NewManager(0)
	var wg sync.WaitGroup
	for i := 1; i <= 64; i++ {
		wg.Add(1)
		go func(base uint64) {
			defer wg.Done()
			for j := uint64(0); j < 100; j++ {
				m.UpdateMaxTS(base*1000 + j)
			}
		}(uint64(i))
	}
	wg.Wait()
	c.Assert(m.MaxTS(), Equals, uint64(64*1000+99))
}

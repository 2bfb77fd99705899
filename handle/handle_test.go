package handle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolValidityLifecycle(t *testing.T) {
	p := NewPool(4)
	h := p.New()
	require.True(t, p.IsValid(h), "freshly issued handle should be valid")
	require.True(t, p.Del(h), "Del should succeed on a valid handle")
	require.False(t, p.IsValid(h), "handle should be invalid after Del")
}

func TestPoolFullReturnsInvalid(t *testing.T) {
	p := NewPool(2)
	a := p.New()
	b := p.New()
	require.NotEqual(t, Invalid, a)
	require.NotEqual(t, Invalid, b)
	require.Equal(t, Invalid, p.New(), "expected Invalid once pool is at capacity")
}

func TestPoolCyclingRing(t *testing.T) {
	p := NewPool(4)
	var live []Handle
	for i := 0; i < 10; i++ {
		h := p.New()
		require.NotEqual(t, Invalid, h, "iteration %d: unexpected Invalid", i)
		live = append(live, h)
		if i > 0 {
			require.True(t, p.Del(live[len(live)-2]), "iteration %d: Del of previous handle should succeed", i)
		}
		for j, prior := range live {
			if j == len(live)-1 {
				continue
			}
			require.False(t, p.IsValid(prior), "iteration %d: stale handle %v should be invalid", i, prior)
		}
	}
}

func TestPoolGenerationDiffersAfterReuse(t *testing.T) {
	p := NewPool(1)
	h1 := p.New()
	p.Del(h1)
	h2 := p.New()
	require.Equal(t, h1.Index(), h2.Index(), "expected slot reuse")
	require.NotEqual(t, h1.Generation(), h2.Generation(), "expected generation to differ after reuse")
	require.False(t, p.IsValid(h1), "stale handle must not validate against the reused slot")
}

func TestPoolGrow(t *testing.T) {
	p := NewPool(1)
	h1 := p.New()
	require.Equal(t, Invalid, p.New(), "expected Invalid before growth")
	p.Grow(0)
	h2 := p.New()
	require.NotEqual(t, Invalid, h2, "expected a valid handle after growth")
	require.True(t, p.IsValid(h1))
	require.True(t, p.IsValid(h2))
}

func TestPoolClone(t *testing.T) {
	p := NewPool(4)
	h := p.New()
	c := p.Clone()
	require.True(t, c.IsValid(h), "clone should preserve validity")
	p.Del(h)
	require.True(t, c.IsValid(h), "clone should be independent of the original")
}

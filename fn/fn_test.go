package fn

import (
	"errors"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceHelpers(t *testing.T) {
	t.Parallel()

	s := []int{1, 2, 3, 4, 5}

	require.Equal(t, []string{"1", "2", "3", "4", "5"}, Map(strconv.Itoa, s))
	require.Equal(t, []int{2, 4}, Filter(func(i int) bool {
		return i%2 == 0
	}, s))
	require.Empty(t, Filter(func(int) bool { return false }, s))
	require.Equal(t, []int{5, 4, 3, 2, 1}, Reverse(s))

	// The input is left alone.
	require.Equal(t, []int{1, 2, 3, 4, 5}, s)
	require.Empty(t, Reverse([]int(nil)))
}

func TestOption(t *testing.T) {
	t.Parallel()

	errEmpty := errors.New("empty")

	some := Some(7)
	require.True(t, some.IsSome())
	require.False(t, some.IsNone())
	require.Equal(t, 7, some.UnwrapOr(3))

	v, err := some.UnwrapOrErr(errEmpty)
	require.NoError(t, err)
	require.Equal(t, 7, v)

	none := None[int]()
	require.True(t, none.IsNone())
	require.Equal(t, 3, none.UnwrapOr(3))

	_, err = none.UnwrapOrErr(errEmpty)
	require.ErrorIs(t, err, errEmpty)

	double := func(i int) int { return i * 2 }
	zero := func() int { return 0 }
	require.Equal(t, 14, ElimOption(some, zero, double))
	require.Equal(t, 0, ElimOption(none, zero, double))

	var seen []int
	some.WhenSome(func(i int) { seen = append(seen, i) })
	none.WhenSome(func(i int) { seen = append(seen, i) })
	require.Equal(t, []int{7}, seen)
}

func TestSet(t *testing.T) {
	t.Parallel()

	s := NewSet(1, 2, 2, 3)
	require.Len(t, s, 3)
	require.True(t, s.Contains(2))

	c := s.Copy()
	s.Remove(2)
	require.False(t, s.Contains(2))
	require.True(t, c.Contains(2))

	s.Add(4)
	elems := s.ToSlice()
	sort.Ints(elems)
	require.Equal(t, []int{1, 3, 4}, elems)
	require.Empty(t, NewSet[int]().ToSlice())
}

func TestT2(t *testing.T) {
	t.Parallel()

	pair := NewT2("a", 1)
	require.Equal(t, "a", pair.Fst())
	require.Equal(t, 1, pair.Snd())

	a, b := pair.AsGoPair()
	require.Equal(t, "a", a)
	require.Equal(t, 1, b)
}

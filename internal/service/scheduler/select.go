package scheduler

// SelectCandidate steps from index from in direction dir (+1 or -1) through a
// rotation of n cams and returns the first index skip does not reject. When
// every other cam is rejected it returns the plain neighbour and fellBack.
func SelectCandidate(n, from, dir int, skip func(int) bool) (idx int, fellBack bool) {
	if n <= 0 {
		return -1, false
	}
	if n == 1 {
		return 0, false
	}

	for step := 1; step < n; step++ {
		i := wrap(from+dir*step, n)
		if !skip(i) {
			return i, false
		}
	}

	return wrap(from+dir, n), true
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

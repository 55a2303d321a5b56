package util

func Double(x int) int {
	return x * 2
}

func Triple(x int) int {
	return x * 3
}

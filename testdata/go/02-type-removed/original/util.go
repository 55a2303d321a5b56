package util

type Celsius float64

func Double(x int) int {
	return x * 2
}

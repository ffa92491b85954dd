// Command redisalloc exercises the redisalloc adapter against the bundled
// host allocators.
package main

func main() {
	execute()
}

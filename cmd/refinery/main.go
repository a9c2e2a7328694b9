// Command refinery profiles, cleans and audits tabular datasets.
package main

func main() {
	Execute()
}

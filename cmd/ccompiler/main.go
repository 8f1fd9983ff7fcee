package main

import (
	"fmt"
	"os"

	"github.com/mkchaos/rsc/pkg/asm"
	"github.com/mkchaos/rsc/pkg/compiler"
	"github.com/mkchaos/rsc/pkg/utils"
)

const testSource = `int x = 10;
int twice(int n) { return n * 2; }
int main() {
	int y = twice(x);
	y;
	return 0;
}
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		_, data, err := utils.ReadSource(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = data
	}

	a, err := compiler.Build(src)

	fmt.Printf("Source:\n%s\n", a.Source)

	if a.Tokens != nil {
		fmt.Printf("Tokens (%d)\n", len(a.Tokens))
		for _, tok := range a.Tokens {
			fmt.Println(" ", tok)
		}
		fmt.Println()
	}

	if a.AST != nil {
		fmt.Println("AST")
		for _, s := range a.AST {
			fmt.Println(" ", s)
		}
		fmt.Println()
	}

	if a.Semantic != nil {
		fmt.Println("Symbols")
		fmt.Print(compiler.Dump(a.Semantic))
		fmt.Println()
	}

	if a.Program != nil {
		fmt.Println("Listing")
		fmt.Print(asm.Disassemble(a.Program))
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

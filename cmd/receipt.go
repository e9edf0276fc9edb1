package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/factuurlab/factuur/internal/ocr"
)

var extractReceiptCmd = &cobra.Command{
	Use:   "extract-receipt [text-file]",
	Short: "Extract vendor, amount and date from OCR'd receipt text",
	Long: `Reads receipt text from the given file (or stdin with "-") and prints
the extracted fields as JSON. The text is expected to come from an OCR step;
this command only does the field heuristics.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text []byte
		var err error
		if args[0] == "-" {
			text, err = io.ReadAll(os.Stdin)
		} else {
			text, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read receipt text: %w", err)
		}
		ex := ocr.Extract(string(text))
		out, err := json.MarshalIndent(ex, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractReceiptCmd)
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"nolmessage/internal"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

func main() {
	addr := flag.String("addr", "http://localhost:3000", "Base URL of the relay HTTP server")
	flag.Parse()

	snapshot, err := fetch(*addr + "/debug/rooms")
	if err != nil {
		log.Fatal("Error while fetching rooms: ", err)
	}
	printRooms(os.Stdout, snapshot)
}

func fetch(url string) (internal.DebugSnapshot, error) {
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return internal.DebugSnapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return internal.DebugSnapshot{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var snapshot internal.DebugSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return internal.DebugSnapshot{}, fmt.Errorf("decode: %w", err)
	}
	return snapshot, nil
}

func printRooms(w io.Writer, snapshot internal.DebugSnapshot) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Room", "Members", "Capacity", "History", "Last Activity", "Full"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, room := range snapshot.Rooms {
		full := ""
		if room.Full {
			full = "yes"
		}
		table.Append([]string{
			string(room.ID),
			strconv.Itoa(room.Members),
			strconv.Itoa(room.Capacity),
			strconv.Itoa(room.History),
			room.LastActivity.Format("15:04:05"),
			full,
		})
	}
	table.Render()

	stats := snapshot.Stats
	fmt.Fprintf(w, "\nconnections=%d joins=%d rejected=%d messages=%d dropped=%d failed=%d evicted=%d\n",
		stats.ActiveConnections, stats.JoinsAdmitted, stats.JoinsRejected, stats.MessagesPosted,
		stats.DeliveriesDropped, stats.DeliveriesFailed, stats.RoomsEvicted)
}

package diskbackend

import (
	"bufio"
	"encoding/json"
	"net"
	"time"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
)

// qmpClient is a minimal client for QEMU's QMP control protocol: newline-
// delimited JSON objects over a Unix socket. The daemon sends a greeting,
// then accepts "qmp_capabilities", then ordinary commands.
type qmpClient struct {
	conn   net.Conn
	reader *bufio.Scanner
}

type qmpCommand struct {
	Execute string `json:"execute"`
}

type qmpResponse struct {
	Return map[string]interface{} `json:"return"`
	Error  *qmpError              `json:"error"`
}

type qmpError struct {
	Class string `json:"class"`
	Desc  string `json:"desc"`
}

// dialQMP connects to socketPath, retrying briefly while the daemon starts
// up, reads the initial greeting, and completes the qmp_capabilities
// handshake required before any other command is accepted.
func dialQMP(socketPath string, timeout time.Duration) (*qmpClient, error) {
	deadline := time.Now().Add(timeout)
	var conn net.Conn
	var err error
	for {
		conn, err = net.Dial("unix", socketPath)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return nil, imgerr.Wrap(imgerr.KindQmpHandshakeFailed, err, "connecting to %q", socketPath)
		}
		time.Sleep(50 * time.Millisecond)
	}

	c := &qmpClient{conn: conn, reader: bufio.NewScanner(conn)}
	if !c.reader.Scan() {
		return nil, imgerr.New(imgerr.KindQmpHandshakeFailed, "no greeting from %q", socketPath)
	}

	if err := c.send(qmpCommand{Execute: "qmp_capabilities"}); err != nil {
		return nil, imgerr.Wrap(imgerr.KindQmpHandshakeFailed, err, "sending qmp_capabilities")
	}
	resp, err := c.recv()
	if err != nil {
		return nil, imgerr.Wrap(imgerr.KindQmpHandshakeFailed, err, "reading qmp_capabilities reply")
	}
	if resp.Error != nil {
		return nil, imgerr.New(imgerr.KindQmpHandshakeFailed, "qmp_capabilities rejected: %s", resp.Error.Desc)
	}
	return c, nil
}

func (c *qmpClient) send(cmd qmpCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = c.conn.Write(data)
	return err
}

func (c *qmpClient) recv() (*qmpResponse, error) {
	if !c.reader.Scan() {
		if err := c.reader.Err(); err != nil {
			return nil, err
		}
		return nil, imgerr.New(imgerr.KindQmpHandshakeFailed, "connection closed while reading response")
	}
	var resp qmpResponse
	if err := json.Unmarshal(c.reader.Bytes(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Quit sends the "quit" command and closes the connection, the orderly
// shutdown path for a qemu-storage-daemon started by QCow2Backend.
func (c *qmpClient) Quit() error {
	if err := c.send(qmpCommand{Execute: "quit"}); err != nil {
		c.conn.Close()
		return imgerr.Wrap(imgerr.KindQmpQuitFailed, err, "sending quit")
	}
	_, err := c.recv()
	c.conn.Close()
	if err != nil {
		return imgerr.Wrap(imgerr.KindQmpQuitFailed, err, "reading quit reply")
	}
	return nil
}

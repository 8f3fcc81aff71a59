package printer

import (
	"errors"
	"io"
	"os/exec"
)

// Pager pipes output through less, or more when less is missing.
type Pager struct {
	cmd       *exec.Cmd
	in        io.WriteCloser
	hasColors bool
}

func NewPager(out io.Writer) (*Pager, error) {
	var cmd *exec.Cmd
	hasColors := false
	if path, err := exec.LookPath("less"); err == nil {
		cmd = exec.Command(path, "-R", "-S")
		hasColors = true
	} else if path, err := exec.LookPath("more"); err == nil {
		cmd = exec.Command(path)
	} else {
		return nil, errors.New("no pager found: neither 'less' nor 'more' is available")
	}
	cmd.Stdout = out
	cmd.Stderr = out
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Pager{cmd: cmd, in: in, hasColors: hasColors}, nil
}

func (p *Pager) HasColors() bool {
	return p.hasColors
}

func (p *Pager) Write(data []byte) (int, error) {
	return p.in.Write(data)
}

// Close ends the input and waits for the user to quit the pager.
func (p *Pager) Close() error {
	_ = p.in.Close()
	return p.cmd.Wait()
}

package device

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
	"github.com/newtron-network/portctl/pkg/version"
)

// DefaultSSHPort is used when credentials carry no port.
const DefaultSSHPort = 22

// Credentials authenticate an SSH session to one device.
type Credentials struct {
	Username string
	Password string
	KeyFile  string
	Port     int
}

// CredentialSource resolves credentials by device name.
type CredentialSource interface {
	Credentials(device string) (Credentials, error)
}

// SSHOpener opens one SSH connection per session. Every query and push runs
// in its own exec channel on that connection.
type SSHOpener struct {
	creds          CredentialSource
	knownHostsFile string
}

// NewSSHOpener creates an opener. An empty knownHostsFile disables host key
// verification.
func NewSSHOpener(creds CredentialSource, knownHostsFile string) *SSHOpener {
	return &SSHOpener{creds: creds, knownHostsFile: knownHostsFile}
}

// Open dials the device and authenticates.
func (o *SSHOpener) Open(ctx context.Context, dev model.DeviceRef) (Session, error) {
	creds, err := o.creds.Credentials(dev.Name)
	if err != nil {
		return nil, err
	}

	config, err := o.clientConfig(creds)
	if err != nil {
		return nil, err
	}

	port := creds.Port
	if port == 0 {
		port = DefaultSSHPort
	}
	addr := net.JoinHostPort(dev.Address, strconv.Itoa(port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}

	// Bound the handshake by the caller's deadline.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake %s: %w", addr, err)
	}
	conn.SetDeadline(time.Time{})

	util.WithDevice(dev.Name).Debugf("SSH session open to %s", addr)
	return &sshSession{device: dev.Name, client: ssh.NewClient(sshConn, chans, reqs)}, nil
}

func (o *SSHOpener) clientConfig(creds Credentials) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if creds.KeyFile != "" {
		key, err := os.ReadFile(creds.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading SSH key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing SSH key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		pass := creds.Password
		auth = append(auth,
			ssh.Password(pass),
			// NX-OS offers keyboard-interactive before password on some releases.
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = pass
				}
				return answers, nil
			}),
		)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if o.knownHostsFile != "" {
		cb, err := knownhosts.New(o.knownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("loading known_hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		ClientVersion:   version.SSHClientVersion(),
	}, nil
}

type sshSession struct {
	device string
	client *ssh.Client

	closeOnce sync.Once
	closeErr  error
}

// Query runs a show command in a fresh exec channel.
func (s *sshSession) Query(ctx context.Context, command string) (string, error) {
	out, err := s.run(ctx, command)
	if err != nil {
		return out, err
	}
	if rejected(out) {
		return out, fmt.Errorf("%w: %s: %s", ErrCommandRejected, command, firstLine(out))
	}
	return out, nil
}

// Push enters configuration mode and sends the block as one semicolon
// separated command line so the device sees it in a single exec.
func (s *sshSession) Push(ctx context.Context, config string) error {
	var cmds []string
	cmds = append(cmds, "configure terminal")
	for _, line := range strings.Split(config, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			cmds = append(cmds, line)
		}
	}
	cmds = append(cmds, "end")

	out, err := s.run(ctx, strings.Join(cmds, " ; "))
	if err != nil {
		return err
	}
	if rejected(out) {
		return fmt.Errorf("%w: %s", ErrCommandRejected, firstLine(out))
	}
	return nil
}

// Close closes the SSH connection.
func (s *sshSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
		util.WithDevice(s.device).Debug("SSH session closed")
	})
	return s.closeErr
}

func (s *sshSession) run(ctx context.Context, cmd string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(cmd)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		session.Close()
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return string(r.out), fmt.Errorf("SSH exec '%s': %w", cmd, r.err)
		}
		return string(r.out), nil
	}
}

// rejected recognizes NX-OS error banners.
func rejected(out string) bool {
	trimmed := strings.TrimSpace(out)
	return strings.HasPrefix(trimmed, "% ") ||
		strings.HasPrefix(trimmed, "ERROR:") ||
		strings.Contains(trimmed, "Invalid command") ||
		strings.Contains(trimmed, "Invalid interface")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

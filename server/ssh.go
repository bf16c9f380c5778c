package server

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/colstore/tilegroup/repl"
)

// SSHConfig configures the admin shell listener: the address to bind and
// the host keys to present. With no AuthorizedBytes, clients connect with
// no authentication, matching the teacher's server/ssh.go default.
type SSHConfig struct {
	Address         string
	HostKeysBytes   [][]byte
	AuthorizedBytes []byte
}

type sshServer struct {
	mutex    sync.Mutex
	cfg      *ssh.ServerConfig
	listener net.Listener
}

func newSSHServer(sshCfg SSHConfig) (*sshServer, error) {
	cfg := &ssh.ServerConfig{
		BannerCallback: func(ssh.ConnMetadata) string { return "tilestore admin shell\n" },
	}

	if len(sshCfg.HostKeysBytes) == 0 {
		signer, err := ephemeralHostKey()
		if err != nil {
			return nil, err
		}
		log.Warn("ssh host key: generated ephemeral key, no host key file configured")
		cfg.AddHostKey(signer)
	}
	for _, raw := range sshCfg.HostKeysBytes {
		key, err := ssh.ParsePrivateKey(raw)
		if err != nil {
			return nil, err
		}
		cfg.AddHostKey(key)
	}

	authorized := map[string]struct{}{}
	rest := sshCfg.AuthorizedBytes
	for len(rest) > 0 {
		pk, _, options, r, err := ssh.ParseAuthorizedKey(rest)
		if err != nil {
			return nil, err
		}
		_ = options
		authorized[string(pk.Marshal())] = struct{}{}
		rest = r
	}

	if len(authorized) == 0 {
		cfg.NoClientAuth = true
		log.Warn("ssh client auth: NONE")
	} else {
		cfg.PublicKeyCallback = func(md ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if _, ok := authorized[string(key.Marshal())]; !ok {
				return nil, fmt.Errorf("unknown public key for %s", md.User())
			}
			return nil, nil
		}
	}

	return &sshServer{cfg: cfg}, nil
}

func ephemeralHostKey() (ssh.Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return ssh.NewSignerFromKey(priv)
}

// ListenAndServeSSH accepts SSH connections on sshCfg.Address and opens an
// interactive repl.Run session on each "session" channel, grounded in the
// teacher's server/ssh.go ListenAndServeSSH and handleChannel.
func (svr *Server) ListenAndServeSSH(sshCfg SSHConfig) error {
	ss, err := newSSHServer(sshCfg)
	if err != nil {
		return err
	}

	ss.listener, err = net.Listen("tcp", sshCfg.Address)
	if err != nil {
		return err
	}
	svr.addListener(ss.listener)

	for {
		tcp, err := ss.listener.Accept()
		if err != nil {
			svr.mutex.Lock()
			closed := svr.shutdown
			svr.mutex.Unlock()
			if closed {
				return ErrServerClosed
			}
			log.WithField("error", err.Error()).Error("ssh accept")
			return err
		}

		conn, chans, reqs, err := ssh.NewServerConn(tcp, ss.cfg)
		if err != nil {
			log.WithField("error", err.Error()).Error("ssh handshake")
			continue
		}
		entry := log.WithFields(log.Fields{"user": conn.User(), "addr": conn.RemoteAddr().String()})
		entry.Info("ssh connected")

		go ssh.DiscardRequests(reqs)
		go svr.handleSSHChannels(chans, entry)
	}
}

func (svr *Server) handleSSHChannels(chans <-chan ssh.NewChannel, entry *log.Entry) {
	for nch := range chans {
		if nch.ChannelType() != "session" {
			nch.Reject(ssh.UnknownChannelType, nch.ChannelType())
			continue
		}
		ch, reqs, err := nch.Accept()
		if err != nil {
			entry.WithField("error", err.Error()).Error("ssh channel accept")
			continue
		}
		go ssh.DiscardRequests(reqs)
		go svr.handleSSHSession(ch, entry)
	}
}

func (svr *Server) handleSSHSession(ch ssh.Channel, entry *log.Entry) {
	svr.trackConn(1)
	defer svr.trackConn(-1)
	defer ch.Close()
	defer entry.Info("ssh disconnected")

	t := terminal.NewTerminal(ch, "tilestore> ")
	repl.Run(svr.Engine, &termReader{term: t}, t)
}

// termReader adapts a terminal.Terminal into an io.RuneReader, grounded
// in the teacher's server/ssh.go termReader.
type termReader struct {
	term *terminal.Terminal
	line []byte
}

func (tr *termReader) ReadRune() (r rune, size int, err error) {
	if len(tr.line) == 0 {
		s, err := tr.term.ReadLine()
		if err != nil {
			return 0, 0, err
		}
		tr.line = []byte(s + "\n")
	}
	r = rune(tr.line[0])
	tr.line = tr.line[1:]
	return r, 1, nil
}

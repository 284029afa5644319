package dnsserver

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/registry"
)

// Options configures the DNS discovery server.
type Options struct {
	ListenAddress string
	Port          int
	Protocol      string // "udp", "tcp" or "both"
	// Domain is the zone services are resolvable under, e.g.
	// "service.local" answers "user-service.service.local".
	Domain string
}

// Server answers A and SRV queries for registered services straight from
// the registry store, so non-HTTP clients can discover peers too.
type Server struct {
	udpServer *dns.Server
	tcpServer *dns.Server
	store     registry.Store
	opts      Options
	logger    config.Logger
}

// NewServer creates a DNS discovery server over store.
func NewServer(store registry.Store, opts Options, logger config.Logger) *Server {
	if opts.Domain == "" {
		opts.Domain = "service.local"
	}
	if opts.Protocol == "" {
		opts.Protocol = "both"
	}
	return &Server{store: store, opts: opts, logger: logger}
}

// Start launches the configured listeners.
func (s *Server) Start() error {
	handler := dns.NewServeMux()
	handler.HandleFunc(".", s.handleDNSRequest)

	addr := net.JoinHostPort(s.opts.ListenAddress, strconv.Itoa(s.opts.Port))

	s.logger.Info("starting DNS discovery server",
		zap.String("addr", addr),
		zap.String("protocol", s.opts.Protocol),
		zap.String("domain", s.opts.Domain))

	switch s.opts.Protocol {
	case "udp":
		return s.startListener(&s.udpServer, addr, "udp", handler)
	case "tcp":
		return s.startListener(&s.tcpServer, addr, "tcp", handler)
	case "both":
		if err := s.startListener(&s.udpServer, addr, "udp", handler); err != nil {
			return err
		}
		return s.startListener(&s.tcpServer, addr, "tcp", handler)
	default:
		return fmt.Errorf("unsupported DNS protocol: %s", s.opts.Protocol)
	}
}

// startListener runs one dns.Server in the background.
func (s *Server) startListener(slot **dns.Server, addr, network string, handler dns.Handler) error {
	srv := &dns.Server{Addr: addr, Net: network, Handler: handler}
	*slot = srv

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			// miekg/dns has no ErrServerClosed; shutdown also lands here.
			s.logger.Error("DNS server stopped", zap.String("net", network), zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.udpServer != nil {
		if err := s.udpServer.ShutdownContext(ctx); err != nil {
			return err
		}
	}
	if s.tcpServer != nil {
		if err := s.tcpServer.ShutdownContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

// handleDNSRequest answers every question in the query.
func (s *Server) handleDNSRequest(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	for _, q := range r.Question {
		s.logger.Debug("DNS query",
			zap.String("name", q.Name),
			zap.String("type", dns.TypeToString[q.Qtype]))

		if !s.handleQuery(q, m) {
			m.SetRcode(r, dns.RcodeNameError)
		}
	}

	if err := w.WriteMsg(m); err != nil {
		s.logger.Error("writing DNS response failed", zap.Error(err))
	}
}

// handleQuery resolves one question against the registry. It returns false
// when the name is not a registered service under the configured domain.
func (s *Server) handleQuery(q dns.Question, m *dns.Msg) bool {
	domain := strings.TrimSuffix(strings.ToLower(q.Name), ".")

	suffix := "." + s.opts.Domain
	if !strings.HasSuffix(domain, suffix) {
		return false
	}
	serviceName := strings.TrimSuffix(domain, suffix)

	rec, err := s.store.Discover(context.Background(), serviceName)
	if err != nil {
		return false
	}

	host, port, err := hostPort(rec.URL)
	if err != nil {
		s.logger.Warn("registered URL is not resolvable over DNS",
			zap.String("service", serviceName), zap.Error(err))
		return false
	}

	switch q.Qtype {
	case dns.TypeA:
		ip := net.ParseIP(host)
		if ip == nil || ip.To4() == nil {
			return false
		}
		rr, err := dns.NewRR(fmt.Sprintf("%s. A %s", domain, host))
		if err != nil {
			return false
		}
		m.Answer = append(m.Answer, rr)
		return true

	case dns.TypeSRV:
		rr, err := dns.NewRR(fmt.Sprintf("%s. SRV 0 0 %d %s.", domain, port, host))
		if err != nil {
			return false
		}
		m.Answer = append(m.Answer, rr)
		return true

	default:
		return false
	}
}

// hostPort splits a registered base URL into host and port.
func hostPort(rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("parsing service URL: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		return "", 0, fmt.Errorf("service URL %q has no host", rawURL)
	}

	port := 80
	if u.Scheme == "https" {
		port = 443
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("parsing service URL port: %w", err)
		}
	}
	return host, port, nil
}
